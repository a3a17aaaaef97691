package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
	"github.com/md-rashed-zaman/massagebook/libs/httpx"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/booking"
)

type AppointmentHandler struct {
	mgr    *booking.Manager
	logger *slog.Logger
}

func NewAppointmentHandler(mgr *booking.Manager, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{mgr: mgr, logger: logger}
}

type rescheduleBody struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

type listResponse struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message"`
	Appointments []booking.Detailed `json:"appointments"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	var req booking.CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}
	writeResult(w, h.mgr.CreateAppointment(r.Context(), actor, req), true)
}

func (h *AppointmentHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	var req booking.ManualRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}
	writeResult(w, h.mgr.CreateManualAppointment(r.Context(), actor, req), true)
}

// Transition serves POST /api/v1/appointments/{id}/{action} for confirm, cancel and complete.
func (h *AppointmentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	id := r.PathValue("id")

	var res booking.Result
	switch r.PathValue("action") {
	case "confirm":
		res = h.mgr.Confirm(r.Context(), actor, id)
	case "cancel":
		res = h.mgr.Cancel(r.Context(), actor, id)
	case "complete":
		res = h.mgr.Complete(r.Context(), actor, id)
	default:
		writeFailure(w, http.StatusNotFound, "unknown action")
		return
	}
	writeResult(w, res, false)
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	var body rescheduleBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}
	res := h.mgr.Reschedule(r.Context(), actor, booking.RescheduleRequest{
		ID:     r.PathValue("id"),
		Date:   strings.TrimSpace(body.Date),
		Time:   strings.TrimSpace(body.Time),
		Reason: body.Reason,
	})
	writeResult(w, res, false)
}

// List returns the caller's appointments: a client sees its bookings, a provider its agenda.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())

	var (
		list []booking.Detailed
		err  error
	)
	switch {
	case actor.IsProvider():
		list, err = h.mgr.ListForProvider(r.Context(), actor.UserID)
	case actor.IsClient():
		list, err = h.mgr.ListForClient(r.Context(), actor.UserID)
	default:
		writeFailure(w, http.StatusForbidden, "an acting client or provider is required")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list appointments failed", "err", err, "user_id", actor.UserID)
		writeFailure(w, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}
	if list == nil {
		list = []booking.Detailed{}
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Success: true, Message: "ok", Appointments: list})
}
