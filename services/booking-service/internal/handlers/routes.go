package handlers

import (
	"net/http"
)

// Register mounts the public routes as-is and wraps the rest with requireIdentity.
func Register(mux *http.ServeMux, requireIdentity func(http.Handler) http.Handler, appts *AppointmentHandler, providers *ProviderHandler, authn *AuthHandler) {
	protected := func(h http.HandlerFunc) http.Handler { return requireIdentity(h) }

	mux.HandleFunc("POST /api/v1/auth/register", authn.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authn.Login)

	mux.HandleFunc("GET /api/v1/providers", providers.List)
	mux.HandleFunc("GET /api/v1/providers/{id}/slots", providers.Slots)
	mux.HandleFunc("GET /api/v1/providers/{id}/dates", providers.Dates)
	mux.Handle("PUT /api/v1/providers/{id}/services", protected(providers.UpdateServices))
	mux.Handle("GET /api/v1/clients", protected(providers.Clients))

	mux.Handle("GET /api/v1/appointments", protected(appts.List))
	mux.Handle("POST /api/v1/appointments", protected(appts.Create))
	mux.Handle("POST /api/v1/appointments/manual", protected(appts.CreateManual))
	mux.Handle("POST /api/v1/appointments/{id}/reschedule", protected(appts.Reschedule))
	mux.Handle("POST /api/v1/appointments/{id}/{action}", protected(appts.Transition))
}
