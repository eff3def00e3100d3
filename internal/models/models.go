// Package models contains data structures for the application
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Action values recorded in the event log.
const (
	ActionIn  = "IN"
	ActionOut = "OUT"
)

// Employee status values accepted from the form.
const (
	StatusStaff      = "Штат"
	StatusOutsourced = "Аутсорсинг"
)

// SourceWeb marks events submitted through the web form.
const SourceWeb = "web"

// Coord is an optional geolocation value. The browser sends it either as a
// number or as an empty string, so it decodes both.
type Coord string

func (c *Coord) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*c = ""
	case string:
		*c = Coord(t)
	case float64:
		if t == math.Trunc(t) {
			*c = Coord(strconv.FormatInt(int64(t), 10))
		} else {
			*c = Coord(strconv.FormatFloat(t, 'f', -1, 64))
		}
	default:
		return fmt.Errorf("unsupported coordinate value %T", v)
	}
	return nil
}

// MarkRequest represents a check-in/check-out submission from the web form
type MarkRequest struct {
	EmployeeName   string `json:"employeeName"`
	EmployeeStatus string `json:"employeeStatus"`
	Action         string `json:"action"`
	Worksite       string `json:"worksite"`
	Latitude       Coord  `json:"latitude"`
	Longitude      Coord  `json:"longitude"`
	Accuracy       Coord  `json:"accuracy"`
}

// Event is one attendance record, one row on the Events sheet
type Event struct {
	Timestamp      string
	EmployeeName   string
	EmployeeStatus string
	Action         string
	Worksite       string
	Source         string
	Latitude       string
	Longitude      string
	Accuracy       string
}

// LastMark is the most recent recorded event for an employee.
// All fields are empty when the employee has no history.
type LastMark struct {
	Action    string
	Status    string
	Worksite  string
	Timestamp string
}
