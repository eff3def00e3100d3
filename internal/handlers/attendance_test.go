package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/repository"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/services"
)

// mockMarkService is a mock implementation for testing
type mockMarkService struct {
	markCalled  bool
	lastRequest *models.MarkRequest
	markEvent   *models.Event
	markErr     error

	lastMark    *models.LastMark
	lastMarkErr error

	employees    []string
	employeesErr error
}

func (m *mockMarkService) Mark(ctx context.Context, req *models.MarkRequest) (*models.Event, error) {
	m.markCalled = true
	m.lastRequest = req
	return m.markEvent, m.markErr
}

func (m *mockMarkService) LastMark(ctx context.Context, employeeName string) (*models.LastMark, error) {
	return m.lastMark, m.lastMarkErr
}

func (m *mockMarkService) Employees(ctx context.Context) ([]string, error) {
	return m.employees, m.employeesErr
}

// Ensure mock implements the interface
var _ services.MarkProcessor = (*mockMarkService)(nil)

func TestHandleMark(t *testing.T) {
	acceptedEvent := &models.Event{Timestamp: "20.01.2026, 08:30:00"}

	tests := []struct {
		name           string
		body           interface{}
		markEvent      *models.Event
		markErr        error
		wantStatusCode int
		wantMessage    string
		wantCalled     bool
	}{
		{
			name: "accepted mark",
			body: models.MarkRequest{
				EmployeeName:   "Иванов Иван",
				EmployeeStatus: models.StatusStaff,
				Action:         models.ActionIn,
				Worksite:       "Склад",
			},
			markEvent:      acceptedEvent,
			wantStatusCode: http.StatusOK,
			wantMessage:    "Отметка сохранена",
			wantCalled:     true,
		},
		{
			name:           "validation failure",
			body:           models.MarkRequest{EmployeeName: "Иванов Иван"},
			markErr:        &services.ValidationError{Message: "Не указаны обязательные поля: ФИО, Статус, Действие, Участок"},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "обязательные поля",
			wantCalled:     true,
		},
		{
			name:           "upstream auth failure",
			body:           models.MarkRequest{EmployeeName: "Иванов Иван"},
			markErr:        fmt.Errorf("append event: %w", repository.ErrUnauthorized),
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    "Ошибка авторизации",
			wantCalled:     true,
		},
		{
			name:           "upstream permission failure",
			body:           models.MarkRequest{EmployeeName: "Иванов Иван"},
			markErr:        fmt.Errorf("append event: %w", repository.ErrForbidden),
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    "Нет доступа",
			wantCalled:     true,
		},
		{
			name:           "generic upstream failure hides detail",
			body:           models.MarkRequest{EmployeeName: "Иванов Иван"},
			markErr:        errors.New("secret=abc123 rejected"),
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    "Ошибка при сохранении данных",
			wantCalled:     true,
		},
		{
			name:           "invalid JSON body",
			body:           "not json",
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Некорректный формат",
			wantCalled:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockMarkService{markEvent: tt.markEvent, markErr: tt.markErr}
			handler := NewAttendanceHandler(mockService)

			var bodyBytes []byte
			if str, ok := tt.body.(string); ok {
				bodyBytes = []byte(str)
			} else {
				var err error
				bodyBytes, err = json.Marshal(tt.body)
				if err != nil {
					t.Fatalf("Failed to marshal body: %v", err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/api/mark", bytes.NewReader(bodyBytes))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.HandleMark(rr, req)

			if rr.Code != tt.wantStatusCode {
				t.Errorf("HandleMark() status = %v, want %v", rr.Code, tt.wantStatusCode)
			}
			if mockService.markCalled != tt.wantCalled {
				t.Errorf("Mark called = %v, want %v", mockService.markCalled, tt.wantCalled)
			}
			if !strings.Contains(rr.Body.String(), tt.wantMessage) {
				t.Errorf("body = %s, want containing %q", rr.Body.String(), tt.wantMessage)
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Status    string `json:"status"`
					Timestamp string `json:"timestamp"`
				}
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.Status != "ok" || resp.Timestamp != acceptedEvent.Timestamp {
					t.Errorf("response = %+v, want ok with timestamp", resp)
				}
			}
		})
	}
}

func TestHandleMarkDecodesGeoVariants(t *testing.T) {
	// the browser sends coordinates as numbers, or empty strings when
	// geolocation was denied
	mockService := &mockMarkService{markEvent: &models.Event{}}
	handler := NewAttendanceHandler(mockService)

	body := `{"employeeName":"Иванов Иван","employeeStatus":"Штат","action":"IN","worksite":"Склад","latitude":55.75,"longitude":"","accuracy":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/mark", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.HandleMark(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	got := mockService.lastRequest
	if got.Latitude != "55.75" || got.Longitude != "" || got.Accuracy != "12" {
		t.Errorf("geo = (%q, %q, %q), want (55.75, , 12)", got.Latitude, got.Longitude, got.Accuracy)
	}
}

func TestHandleEmployees(t *testing.T) {
	tests := []struct {
		name      string
		employees []string
		err       error
		wantBody  string
	}{
		{
			name:      "roster returned",
			employees: []string{"Иванов Иван", "Петров Пётр"},
			wantBody:  "Иванов Иван",
		},
		{
			name:     "upstream failure degrades to empty list",
			err:      errors.New("graph down"),
			wantBody: `"employees":[]`,
		},
		{
			name:     "empty roster",
			wantBody: `"employees":[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAttendanceHandler(&mockMarkService{employees: tt.employees, employeesErr: tt.err})

			rr := httptest.NewRecorder()
			handler.HandleEmployees(rr, httptest.NewRequest(http.MethodGet, "/api/employees", nil))

			if rr.Code != http.StatusOK {
				t.Errorf("status = %d, want 200 always", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want containing %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleLastMark(t *testing.T) {
	tests := []struct {
		name           string
		employeeName   string
		lastMark       *models.LastMark
		err            error
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "known employee",
			employeeName:   "Иванов Иван",
			lastMark:       &models.LastMark{Action: "IN", Status: "Штат", Worksite: "Склад", Timestamp: "20.01.2026, 08:30:00"},
			wantStatusCode: http.StatusOK,
			wantBody:       `"lastAction":"IN"`,
		},
		{
			name:           "unknown employee gets nulls",
			employeeName:   "Сидоров Степан",
			wantStatusCode: http.StatusOK,
			wantBody:       `"lastAction":null`,
		},
		{
			name:           "missing name",
			employeeName:   "",
			wantStatusCode: http.StatusBadRequest,
			wantBody:       "Не указано ФИО",
		},
		{
			name:           "upstream failure",
			employeeName:   "Иванов Иван",
			err:            errors.New("graph down"),
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       "Ошибка при получении данных",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAttendanceHandler(&mockMarkService{lastMark: tt.lastMark, lastMarkErr: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/api/last-mark", nil)
			if tt.employeeName != "" {
				req.URL.RawQuery = url.Values{"employeeName": {tt.employeeName}}.Encode()
			}
			rr := httptest.NewRecorder()
			handler.HandleLastMark(rr, req)

			if rr.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatusCode)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want containing %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}
