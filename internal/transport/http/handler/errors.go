package handler

import (
	"net/http"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/transport/http/middleware"
)

// httpError writes err with its mapped status. Errors without a client-facing
// message get fallback, so store and codec details never reach the client.
func httpError(w http.ResponseWriter, err error, fallback string) {
	status := middleware.StatusFor(err)
	msg, ok := domain.Message(err)
	if !ok || status == http.StatusInternalServerError {
		msg = fallback
	}
	writeError(w, status, msg)
}
