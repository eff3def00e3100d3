// Package repository defines spreadsheet access interfaces and their
// Microsoft Graph and Google Sheets implementations.
package repository

import (
	"context"
	"errors"

	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
)

// Upstream failure classes, used by handlers to pick a user-facing hint
// without leaking credential detail.
var (
	ErrUnauthorized = errors.New("spreadsheet authentication failed")
	ErrForbidden    = errors.New("spreadsheet access denied")
)

// Workbook is the low-level adapter over one spreadsheet backend.
// Exactly one implementation is active per deployment.
type Workbook interface {
	// ReadRows returns every used row of the sheet; a missing sheet reads
	// as empty, not as an error.
	ReadRows(ctx context.Context, sheet string) ([][]string, error)
	// AppendRow writes cells after the last used row and returns the
	// 1-based row number written.
	AppendRow(ctx context.Context, sheet string, cells []string) (int, error)
	// WriteCell sets a single cell by A1-style address.
	WriteCell(ctx context.Context, sheet, address, value string) error
}

// EventRepository defines access to the append-only event log
type EventRepository interface {
	// ReadAll returns the full event history in append order
	ReadAll(ctx context.Context) ([]models.Event, error)
	// Append writes one event row and returns its row number
	Append(ctx context.Context, event *models.Event) (int, error)
}

// RosterRepository defines access to the employee name roster
type RosterRepository interface {
	List(ctx context.Context) ([]string, error)
	Append(ctx context.Context, name string) error
}

// ScheduleRepository defines access to the per-worksite schedule grids
type ScheduleRepository interface {
	ReadSheet(ctx context.Context, worksite string) ([][]string, error)
	WriteCell(ctx context.Context, worksite, address, value string) error
}
