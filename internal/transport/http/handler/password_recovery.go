package handler

import (
	"net/http"

	"github.com/go-tasks-api/internal/application/auth"
	"github.com/go-tasks-api/internal/domain"
)

// PasswordRecoveryHandler handles the forgot/reset password flow.
type PasswordRecoveryHandler struct {
	svc auth.Service
}

func NewPasswordRecoveryHandler(svc auth.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		httpError(w, err, "Failed to process request. Please try again.")
		return
	}
	writeMessage(w, http.StatusOK, "Password reset code sent to your email")
}

func (h *PasswordRecoveryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		httpError(w, err, "Failed to reset password. Please try again.")
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successful! You can now login with your new password.")
}
