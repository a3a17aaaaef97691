package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
	"github.com/md-rashed-zaman/massagebook/libs/httpx"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
)

const maxHorizonDays = 90

type ProviderHandler struct {
	mgr      *booking.Manager
	dir      directory.Directory
	accounts *directory.Accounts
	logger   *slog.Logger
}

func NewProviderHandler(mgr *booking.Manager, dir directory.Directory, accounts *directory.Accounts, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{mgr: mgr, dir: dir, accounts: accounts, logger: logger}
}

type providersResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Providers []directory.Provider `json:"providers"`
}

type slotsResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	ProviderID string   `json:"providerId"`
	Date       string   `json:"date"`
	Slots      []string `json:"slots"`
}

type datesResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	ProviderID string   `json:"providerId"`
	Dates      []string `json:"dates"`
}

type clientsResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Clients []directory.User `json:"clients"`
}

type servicesBody struct {
	Services []directory.Service `json:"services"`
}

type servicesResponse struct {
	Success  bool                `json:"success"`
	Message  string              `json:"message"`
	Services []directory.Service `json:"services"`
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	providers, err := h.dir.ListProviders(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list providers failed", "err", err)
		writeFailure(w, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}
	if providers == nil {
		providers = []directory.Provider{}
	}
	httpx.WriteJSON(w, http.StatusOK, providersResponse{Success: true, Message: "ok", Providers: providers})
}

func (h *ProviderHandler) Slots(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeFailure(w, http.StatusBadRequest, "date is required")
		return
	}

	open, err := h.mgr.AvailableSlots(r.Context(), providerID, date)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidDate) {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "available slots failed", "err", err, "provider_id", providerID)
		writeFailure(w, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{Success: true, Message: "ok", ProviderID: providerID, Date: date, Slots: open})
}

func (h *ProviderHandler) Dates(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHorizonDays {
			writeFailure(w, http.StatusBadRequest, "days must be between 1 and "+strconv.Itoa(maxHorizonDays))
			return
		}
		days = n
	}

	dates, err := h.mgr.AvailableDates(r.Context(), providerID, days)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "available dates failed", "err", err, "provider_id", providerID)
		writeFailure(w, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, datesResponse{Success: true, Message: "ok", ProviderID: providerID, Dates: dates})
}

// UpdateServices replaces the calling provider's service list.
func (h *ProviderHandler) UpdateServices(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	providerID := r.PathValue("id")
	if !actor.IsProvider() || actor.UserID != providerID {
		writeFailure(w, http.StatusForbidden, "you can only change your own services")
		return
	}
	var body servicesBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}

	services, err := h.accounts.UpdateServices(r.Context(), providerID, body.Services)
	switch {
	case errors.Is(err, directory.ErrInvalid):
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	case directory.IsNotFound(err):
		writeFailure(w, http.StatusNotFound, "provider not found")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "update services failed", "err", err, "provider_id", providerID)
		writeFailure(w, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, servicesResponse{Success: true, Message: "services updated", Services: services})
}

// Clients lists registered clients so a provider can pick one for a manual booking.
func (h *ProviderHandler) Clients(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	if !actor.IsProvider() {
		writeFailure(w, http.StatusForbidden, "only providers can list clients")
		return
	}
	clients, err := h.dir.ListClients(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list clients failed", "err", err)
		writeFailure(w, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}
	if clients == nil {
		clients = []directory.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, clientsResponse{Success: true, Message: "ok", Clients: clients})
}
