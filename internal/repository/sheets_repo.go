package repository

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
)

// Sheet names fixed by the workbook layout. Schedule sheets are named after
// the worksite itself.
const (
	EventsSheet = "Events"
	RosterSheet = "Сотрудники"
)

const eventColumns = 9

// SheetEventRepository stores events on the Events sheet of a Workbook
type SheetEventRepository struct {
	wb Workbook
}

func NewSheetEventRepository(wb Workbook) *SheetEventRepository {
	return &SheetEventRepository{wb: wb}
}

func (r *SheetEventRepository) ReadAll(ctx context.Context) ([]models.Event, error) {
	rows, err := r.wb.ReadRows(ctx, EventsSheet)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, eventFromRow(row))
	}
	return events, nil
}

func (r *SheetEventRepository) Append(ctx context.Context, event *models.Event) (int, error) {
	row, err := r.wb.AppendRow(ctx, EventsSheet, rowFromEvent(event))
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return row, nil
}

// eventFromRow maps one sheet row to an Event, tolerating short rows
// (trailing empty cells are not always returned by the backends).
func eventFromRow(row []string) models.Event {
	cells := make([]string, eventColumns)
	copy(cells, row)
	return models.Event{
		Timestamp:      cells[0],
		EmployeeName:   cells[1],
		EmployeeStatus: cells[2],
		Action:         cells[3],
		Worksite:       cells[4],
		Source:         cells[5],
		Latitude:       cells[6],
		Longitude:      cells[7],
		Accuracy:       cells[8],
	}
}

func rowFromEvent(e *models.Event) []string {
	return []string{
		e.Timestamp,
		e.EmployeeName,
		e.EmployeeStatus,
		e.Action,
		e.Worksite,
		e.Source,
		e.Latitude,
		e.Longitude,
		e.Accuracy,
	}
}

// SheetRosterRepository stores the employee roster as a single column
type SheetRosterRepository struct {
	wb Workbook
}

func NewSheetRosterRepository(wb Workbook) *SheetRosterRepository {
	return &SheetRosterRepository{wb: wb}
}

// List returns the roster names, skipping the header row
func (r *SheetRosterRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.wb.ReadRows(ctx, RosterSheet)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var names []string
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 {
			continue
		}
		if name := strings.TrimSpace(row[0]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *SheetRosterRepository) Append(ctx context.Context, name string) error {
	if _, err := r.wb.AppendRow(ctx, RosterSheet, []string{name}); err != nil {
		return fmt.Errorf("append roster entry: %w", err)
	}
	return nil
}

// SheetScheduleRepository reads and marks the per-worksite schedule grids
type SheetScheduleRepository struct {
	wb Workbook
}

func NewSheetScheduleRepository(wb Workbook) *SheetScheduleRepository {
	return &SheetScheduleRepository{wb: wb}
}

func (r *SheetScheduleRepository) ReadSheet(ctx context.Context, worksite string) ([][]string, error) {
	return r.wb.ReadRows(ctx, worksite)
}

func (r *SheetScheduleRepository) WriteCell(ctx context.Context, worksite, address, value string) error {
	return r.wb.WriteCell(ctx, worksite, address, value)
}

// cellString renders a backend cell value as text. Numeric cells keep their
// spreadsheet representation (no trailing zeros, integers without a point),
// which matters for Excel serial date headers.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func stringifyRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		rows[i] = cells
	}
	return rows
}
