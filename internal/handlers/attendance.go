// Package handlers provides HTTP handlers for API endpoints
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/repository"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/services"
)

// AttendanceHandler serves the attendance JSON API
type AttendanceHandler struct {
	service services.MarkProcessor
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(service services.MarkProcessor) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

type markResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type employeesResponse struct {
	Status    string   `json:"status"`
	Employees []string `json:"employees"`
}

type lastMarkResponse struct {
	Status       string  `json:"status"`
	LastAction   *string `json:"lastAction"`
	LastStatus   *string `json:"lastStatus"`
	LastWorksite *string `json:"lastWorksite"`
	Timestamp    *string `json:"timestamp"`
}

// HandleMark processes a POST /api/mark submission
func (h *AttendanceHandler) HandleMark(w http.ResponseWriter, r *http.Request) {
	var req models.MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "Некорректный формат запроса"})
		return
	}

	event, err := h.service.Mark(r.Context(), &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: verr.Message})
			return
		}
		logrus.WithError(err).Error("mark failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: upstreamMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, markResponse{
		Status:    "ok",
		Message:   "Отметка сохранена",
		Timestamp: event.Timestamp,
	})
}

// HandleEmployees serves the roster for form autocomplete. Upstream failure
// degrades to an empty list, never to a client-visible error.
func (h *AttendanceHandler) HandleEmployees(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Employees(r.Context())
	if err != nil {
		logrus.WithError(err).Error("employee list failed")
		names = nil
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, employeesResponse{Status: "ok", Employees: names})
}

// HandleLastMark serves GET /api/last-mark?employeeName=...
func (h *AttendanceHandler) HandleLastMark(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("employeeName"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: "Не указано ФИО сотрудника"})
		return
	}

	last, err := h.service.LastMark(r.Context(), name)
	if err != nil {
		logrus.WithError(err).Error("last mark lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "Ошибка при получении данных"})
		return
	}

	resp := lastMarkResponse{Status: "ok"}
	if last != nil {
		resp.LastAction = &last.Action
		resp.LastStatus = &last.Status
		resp.LastWorksite = &last.Worksite
		resp.Timestamp = &last.Timestamp
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth is a plain liveness probe
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// upstreamMessage maps a storage failure to a user-facing hint without
// exposing credential or tenant detail.
func upstreamMessage(err error) string {
	switch {
	case errors.Is(err, repository.ErrUnauthorized):
		return "Ошибка авторизации при доступе к таблице"
	case errors.Is(err, repository.ErrForbidden):
		return "Нет доступа к таблице"
	default:
		return "Ошибка при сохранении данных"
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("response encode failed")
	}
}
