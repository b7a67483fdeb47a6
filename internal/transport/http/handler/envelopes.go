package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-tasks-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterEnvelope wraps the registration response.
type RegisterEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email"`
}

// AuthEnvelope wraps verify-otp and login responses.
type AuthEnvelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Token   string                `json:"token"`
	User    domain.AccountSummary `json:"user"`
}

// AccountEnvelope wraps the current-account response.
type AccountEnvelope struct {
	Success bool                  `json:"success"`
	User    domain.AccountSummary `json:"user"`
}

// TaskEnvelope wraps a single task.
type TaskEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Task    *domain.Task `json:"task"`
}

// TaskListEnvelope wraps the owner's task list.
type TaskListEnvelope struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Tasks   []domain.Task `json:"tasks"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: false, Message: msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: true, Message: msg})
}

// decode reads a JSON body into v. An empty body leaves v zero so the
// service reports the missing fields.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
	return false
}
