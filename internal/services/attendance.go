// Package services implements business logic for the application
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/repository"
)

// TimestampLayout is the wall-clock format written to the Events sheet
const TimestampLayout = "02.01.2006, 15:04:05"

// moscow is the fixed timezone of every recorded timestamp
var moscow = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}()

// ValidationError is a rejected submission. The message is user-facing and
// mapped to HTTP 400 by the handler.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func rejectf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Presence is the per-employee attendance state derived from the last
// recorded action.
type Presence int

const (
	// PresenceUnknown means the employee has no recorded history. Both
	// actions are allowed in this state, so a first-ever OUT is accepted.
	PresenceUnknown Presence = iota
	PresenceAway
	PresencePresent
)

func presenceOf(lastAction string) Presence {
	switch lastAction {
	case models.ActionIn:
		return PresencePresent
	case models.ActionOut:
		return PresenceAway
	default:
		return PresenceUnknown
	}
}

// allows reports whether the action is a legal transition from this state:
// IN moves AWAY to PRESENT, OUT moves PRESENT to AWAY.
func (p Presence) allows(action string) bool {
	switch p {
	case PresencePresent:
		return action == models.ActionOut
	case PresenceAway:
		return action == models.ActionIn
	default:
		return true
	}
}

// Decide validates a proposed mark against the employee's last recorded
// event and, when accepted, builds the row to append. It has no side
// effects; persistence belongs to the caller.
func Decide(last *models.LastMark, req *models.MarkRequest, now time.Time) (*models.Event, error) {
	name := strings.TrimSpace(req.EmployeeName)
	if name == "" || strings.TrimSpace(req.EmployeeStatus) == "" ||
		strings.TrimSpace(req.Action) == "" || strings.TrimSpace(req.Worksite) == "" {
		return nil, rejectf("Не указаны обязательные поля: ФИО, Статус, Действие, Участок")
	}

	if req.Action != models.ActionIn && req.Action != models.ActionOut {
		return nil, rejectf(`action должен быть "IN" или "OUT"`)
	}

	if req.EmployeeStatus != models.StatusStaff && req.EmployeeStatus != models.StatusOutsourced {
		return nil, rejectf(`Статус должен быть "Штат" или "Аутсорсинг"`)
	}

	state := PresenceUnknown
	if last != nil {
		state = presenceOf(last.Action)
	}
	if !state.allows(req.Action) {
		if req.Action == models.ActionIn {
			return nil, rejectf(`Нельзя отметить "ПРИХОД" повторно. Сначала отметьте УХОД.`)
		}
		return nil, rejectf(`Нельзя отметить "УХОД" повторно. Сначала отметьте ПРИХОД.`)
	}

	// an OUT closes the session opened by the last IN, so its metadata is
	// pinned to that IN
	if req.Action == models.ActionOut && last != nil && last.Action == models.ActionIn {
		if last.Status != "" && req.EmployeeStatus != last.Status {
			return nil, rejectf(`Статус должен совпадать с приходом. Вы пришли как "%s".`, last.Status)
		}
		if last.Worksite != "" && req.Worksite != last.Worksite {
			return nil, rejectf(`Участок должен совпадать с приходом. Вы пришли на "%s".`, last.Worksite)
		}
	}

	return &models.Event{
		Timestamp:      now.Format(TimestampLayout),
		EmployeeName:   name,
		EmployeeStatus: req.EmployeeStatus,
		Action:         req.Action,
		Worksite:       req.Worksite,
		Source:         models.SourceWeb,
		Latitude:       string(req.Latitude),
		Longitude:      string(req.Longitude),
		Accuracy:       string(req.Accuracy),
	}, nil
}

// lastMarkFor scans the history from the end and returns the most recent
// event for the name, or nil. The log is append-only, so the last physical
// match is the most recent one.
func lastMarkFor(history []models.Event, employeeName string) *models.LastMark {
	target := strings.ToLower(strings.TrimSpace(employeeName))
	if target == "" {
		return nil
	}
	for i := len(history) - 1; i >= 0; i-- {
		ev := history[i]
		if strings.ToLower(strings.TrimSpace(ev.EmployeeName)) == target {
			return &models.LastMark{
				Action:    ev.Action,
				Status:    ev.EmployeeStatus,
				Worksite:  ev.Worksite,
				Timestamp: ev.Timestamp,
			}
		}
	}
	return nil
}

// MarkProcessor defines the interface for attendance recording
type MarkProcessor interface {
	Mark(ctx context.Context, req *models.MarkRequest) (*models.Event, error)
	LastMark(ctx context.Context, employeeName string) (*models.LastMark, error)
	Employees(ctx context.Context) ([]string, error)
}

// Notifier pushes an accepted mark to an external channel. Implementations
// must never block the caller or return an error.
type Notifier interface {
	NotifyMark(event *models.Event)
}

// AttendanceService handles attendance business logic
type AttendanceService struct {
	events   repository.EventRepository
	roster   repository.RosterRepository
	schedule repository.ScheduleRepository
	notifier Notifier

	now    func() time.Time
	detach func(func())
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(
	events repository.EventRepository,
	roster repository.RosterRepository,
	schedule repository.ScheduleRepository,
	notifier Notifier,
) *AttendanceService {
	return &AttendanceService{
		events:   events,
		roster:   roster,
		schedule: schedule,
		notifier: notifier,
		now:      func() time.Time { return time.Now().In(moscow) },
		detach:   func(f func()) { go f() },
	}
}

// Mark validates and persists one check-in/check-out submission. Only the
// event append is on the critical path; roster upsert, schedule sync and
// notifications run detached and their failures stay in the logs.
func (s *AttendanceService) Mark(ctx context.Context, req *models.MarkRequest) (*models.Event, error) {
	history, err := s.events.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	last := lastMarkFor(history, req.EmployeeName)
	event, err := Decide(last, req, s.now())
	if err != nil {
		return nil, err
	}

	rowNum, err := s.events.Append(ctx, event)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"row":      rowNum,
		"employee": event.EmployeeName,
		"action":   event.Action,
		"worksite": event.Worksite,
	}).Info("event recorded")

	if event.Action == models.ActionIn {
		s.detach(func() { s.syncSchedule(event) })
	}
	s.detach(func() { s.upsertRoster(event.EmployeeName) })
	s.detach(func() { s.notifier.NotifyMark(event) })

	return event, nil
}

// LastMark returns the employee's most recent event, or nil when none exists
func (s *AttendanceService) LastMark(ctx context.Context, employeeName string) (*models.LastMark, error) {
	history, err := s.events.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return lastMarkFor(history, employeeName), nil
}

// Employees returns the roster names for form autocomplete
func (s *AttendanceService) Employees(ctx context.Context) ([]string, error) {
	return s.roster.List(ctx)
}
