package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/massagebook/libs/httpx"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
)

type AuthHandler struct {
	accounts *directory.Accounts
	logger   *slog.Logger
}

func NewAuthHandler(accounts *directory.Accounts, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    *directory.User `json:"user,omitempty"`
}

type loginResponse struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	AccessToken string         `json:"accessToken"`
	TokenType   string         `json:"tokenType"`
	User        directory.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req directory.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user, err := h.accounts.Register(r.Context(), req)
	switch {
	case errors.Is(err, directory.ErrInvalid):
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, directory.ErrEmailTaken):
		writeFailure(w, http.StatusConflict, "this email is already registered")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "register failed", "err", err)
		writeFailure(w, http.StatusServiceUnavailable, "could not register, please try again")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, userResponse{Success: true, Message: "account created", User: &user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}

	token, user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, directory.ErrInvalidCredentials):
		writeFailure(w, http.StatusUnauthorized, "incorrect email or password")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "login failed", "err", err)
		writeFailure(w, http.StatusServiceUnavailable, "could not log in, please try again")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Success:     true,
		Message:     "logged in",
		AccessToken: token,
		TokenType:   "Bearer",
		User:        user,
	})
}
