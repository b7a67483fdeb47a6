package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-tasks-api/internal/config"
	"github.com/go-tasks-api/internal/transport/http/handler"
	appmiddleware "github.com/go-tasks-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Auth)

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(deps.Auth)
	sessionH := handler.NewSessionHandler(deps.Auth)
	emailH := handler.NewEmailConfirmHandler(deps.Auth)
	pwH := handler.NewPasswordRecoveryHandler(deps.Auth)
	taskH := handler.NewTaskHandler(deps.Tasks)

	r.Get("/health", healthH.Ping)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route(cfg.APIPrefix, func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Post("/auth/register", userH.Register)
		r.Post("/auth/verify-otp", emailH.VerifyOTP)
		r.Post("/auth/login", sessionH.Login)
		r.Post("/auth/resend-otp", emailH.ResendOTP)
		r.Post("/auth/forgot-password", pwH.Forgot)
		r.Post("/auth/reset-password", pwH.Reset)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", userH.Me)
			r.Delete("/auth/delete-account", userH.DeleteAccount)

			r.Get("/tasks", taskH.List)
			r.Post("/tasks", taskH.Create)
			r.Put("/tasks/{id}", taskH.Update)
			r.Delete("/tasks/{id}", taskH.Delete)
			r.Patch("/tasks/{id}/toggle", taskH.Toggle)
		})
	})

	return r
}
