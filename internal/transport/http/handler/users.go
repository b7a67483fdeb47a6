package handler

import (
	"net/http"
	"strings"

	"github.com/go-tasks-api/internal/application/auth"
	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/transport/http/middleware"
)

// UserHandler handles registration, the current account and account deletion.
type UserHandler struct {
	svc auth.Service
}

func NewUserHandler(svc auth.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Register(r.Context(), req); err != nil {
		httpError(w, err, "Registration failed. Please try again.")
		return
	}
	writeJSON(w, http.StatusCreated, RegisterEnvelope{
		Success: true,
		Message: "Registration successful! OTP sent to your email.",
		Email:   strings.TrimSpace(req.Email),
	})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	writeJSON(w, http.StatusOK, AccountEnvelope{Success: true, User: account})
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), account.ID); err != nil {
		httpError(w, err, "Failed to delete account. Please try again.")
		return
	}
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}
