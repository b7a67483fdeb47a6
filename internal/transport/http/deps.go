package http

import (
	"net/http"

	"github.com/go-tasks-api/internal/application/auth"
	"github.com/go-tasks-api/internal/application/task"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Auth  auth.Service
	Tasks task.Service
	// Metrics serves the Prometheus scrape endpoint; nil disables /metrics.
	Metrics http.Handler
}
