// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/calendar"
	"github.com/Shivanand-hulikatti/lets-meet/internal/live"
	"github.com/Shivanand-hulikatti/lets-meet/internal/mail"
	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
	"github.com/Shivanand-hulikatti/lets-meet/internal/repository"
	"github.com/Shivanand-hulikatti/lets-meet/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// EventHandler holds all HTTP handlers for the scheduling API.
type EventHandler struct {
	svc      *service.EventService
	hub      *live.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewEventHandler constructs an EventHandler. allowedOrigins restricts which
// browser origins may open live statistics sockets; "*" allows any.
func NewEventHandler(svc *service.EventService, hub *live.Hub, allowedOrigins []string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service and repository errors onto HTTP statuses.
// Unexpected errors are logged and hidden from the client.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoResponses):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mail.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "too many invites are waiting to be sent, try again shortly")
	default:
		h.logger.Error("request_failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /api/events
// Creates a new event and returns it with its shareable code.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/events/{code}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// SubmitAvailability handles POST /api/events/{code}/availability
func (h *EventHandler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitAvailabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if _, err := h.svc.SubmitAvailability(r.Context(), chi.URLParam(r, "code"), req); err != nil {
		h.writeServiceError(w, r, err, "failed to submit availability")
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Availability submitted successfully"})
}

// ListAvailability handles GET /api/events/{code}/availability
// Returns every response submitted for the event.
func (h *EventHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	responses, err := h.svc.ListAvailability(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list availability")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if responses == nil {
		responses = []model.AvailabilityResponse{}
	}

	writeJSON(w, http.StatusOK, responses)
}

// Stats handles GET /api/events/{code}/stats
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// CalendarInvite handles POST /api/events/{code}/calendar-invite
// The invite is queued; delivery happens in the background.
func (h *EventHandler) CalendarInvite(w http.ResponseWriter, r *http.Request) {
	var req model.CalendarInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SendCalendarInvite(r.Context(), chi.URLParam(r, "code"), req.Email); err != nil {
		h.writeServiceError(w, r, err, "failed to send calendar invite")
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Calendar invite sent"})
}

// CalendarFile handles GET /api/events/{code}/calendar-file
// An optional ?time= (RFC 3339) picks the slot; otherwise the most popular one is used.
func (h *EventHandler) CalendarFile(w http.ResponseWriter, r *http.Request) {
	var at *time.Time
	if v := r.URL.Query().Get("time"); v != "" {
		// An unencoded "+01:00" offset arrives as " 01:00".
		t, err := time.Parse(time.RFC3339, strings.ReplaceAll(v, " ", "+"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "time must be an RFC 3339 timestamp")
			return
		}
		at = &t
	}

	event, data, err := h.svc.CalendarFile(r.Context(), chi.URLParam(r, "code"), at)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to generate calendar file")
		return
	}

	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": calendar.Filename(event)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
