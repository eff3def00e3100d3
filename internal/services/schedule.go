package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
)

// Russian month abbreviations as they appear in the schedule date headers
var monthsRu = [...]string{"янв", "фев", "мар", "апр", "май", "июн", "июл", "авг", "сен", "окт", "ноя", "дек"}

// shortDate renders a date the way the schedule headers do, e.g. "20-янв"
func shortDate(t time.Time) string {
	return fmt.Sprintf("%d-%s", t.Day(), monthsRu[t.Month()-1])
}

// dateMatches reports whether a header cell names the target date. Headers
// come in three shapes: "20-янв" (or "20.янв"), "20.01.2026", and raw Excel
// serial numbers when the API returns the unformatted cell value.
func dateMatches(cell string, target time.Time) bool {
	s := strings.ToLower(strings.TrimSpace(cell))
	if s == "" {
		return false
	}

	short := shortDate(target)
	if s == short || s == strings.Replace(short, "-", ".", 1) {
		return true
	}

	if s == target.Format("02.01.2006") {
		return true
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 40000 && serial < 50000 {
		d, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return false
		}
		return d.Year() == target.Year() && d.Month() == target.Month() && d.Day() == target.Day()
	}

	return false
}

// cellAddress builds an A1-style address from 1-based column and row numbers
func cellAddress(col, row int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s%d", name, row)
}

// syncSchedule marks today's presence cell on the worksite schedule sheet.
// Best-effort: runs detached from the request after an accepted IN, and any
// failure ends here in the logs.
func (s *AttendanceService) syncSchedule(event *models.Event) {
	ctx := context.Background()
	log := logrus.WithFields(logrus.Fields{"employee": event.EmployeeName, "sheet": event.Worksite})

	rows, err := s.schedule.ReadSheet(ctx, event.Worksite)
	if err != nil {
		log.WithError(err).Warn("schedule sheet read failed")
		return
	}
	if len(rows) < 2 {
		log.Info("schedule sheet empty or missing")
		return
	}

	// employee names sit in column A, below the header row
	target := strings.ToLower(strings.TrimSpace(event.EmployeeName))
	rowIndex := -1
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) == 0 {
			continue
		}
		if strings.ToLower(strings.TrimSpace(rows[i][0])) == target {
			rowIndex = i + 1
			break
		}
	}
	if rowIndex == -1 {
		log.Info("employee not found on schedule sheet")
		return
	}

	// today's date sits somewhere in row 1, after column A
	today := s.now()
	header := rows[0]
	colIndex := -1
	for j := 1; j < len(header); j++ {
		if dateMatches(header[j], today) {
			colIndex = j + 1
			break
		}
	}
	if colIndex == -1 {
		log.WithField("date", shortDate(today)).Info("date not found in schedule header")
		return
	}

	address := cellAddress(colIndex, rowIndex)
	if err := s.schedule.WriteCell(ctx, event.Worksite, address, "1"); err != nil {
		log.WithError(err).Warn("schedule cell write failed")
		return
	}
	log.WithField("cell", address).Info("schedule updated")
}
