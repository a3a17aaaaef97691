package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/massagebook/libs/httpx"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/booking"
)

const msgStoreUnavailable = "could not reach the booking store, please try again"

func writeResult(w http.ResponseWriter, res booking.Result, created bool) {
	status := http.StatusOK
	if res.Success && created {
		status = http.StatusCreated
	}
	if !res.Success {
		status = statusFor(res.Kind)
	}
	httpx.WriteJSON(w, status, res)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	httpx.WriteError(w, status, msg)
}

func statusFor(kind booking.Kind) int {
	switch kind {
	case booking.KindValidation:
		return http.StatusBadRequest
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict, booking.KindInvalidTransition:
		return http.StatusConflict
	case booking.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
