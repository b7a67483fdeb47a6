package handler

import (
	"net/http"

	"github.com/go-tasks-api/internal/application/auth"
	"github.com/go-tasks-api/internal/domain"
)

// EmailConfirmHandler handles the OTP verification endpoints.
type EmailConfirmHandler struct {
	svc auth.Service
}

func NewEmailConfirmHandler(svc auth.Service) *EmailConfirmHandler {
	return &EmailConfirmHandler{svc: svc}
}

func (h *EmailConfirmHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.VerifyOTP(r.Context(), req)
	if err != nil {
		httpError(w, err, "Verification failed. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Success: true,
		Message: "Email verified successfully!",
		Token:   result.Token,
		User:    result.Account,
	})
}

func (h *EmailConfirmHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResendOTP(r.Context(), req); err != nil {
		httpError(w, err, "Failed to resend OTP. Please try again.")
		return
	}
	writeMessage(w, http.StatusOK, "OTP resent successfully!")
}
