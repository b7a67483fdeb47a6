package handler

import (
	"net/http"

	"github.com/go-tasks-api/internal/application/auth"
	"github.com/go-tasks-api/internal/domain"
)

// SessionHandler handles password login.
type SessionHandler struct {
	svc auth.Service
}

func NewSessionHandler(svc auth.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err, "Login failed. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Success: true,
		Message: "Login successful!",
		Token:   result.Token,
		User:    result.Account,
	})
}
