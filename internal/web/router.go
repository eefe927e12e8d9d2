// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package web exposes the account and project APIs over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether the service can reach its dependencies.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// RouterDeps holds everything NewRouter wires together.
type RouterDeps struct {
	Auth       AuthService
	Sessions   SessionLister
	Authorizer IdentityAuthorizer
	Projects   ProjectService
	Tokens     TokenSource

	// RevealUnknownUser answers 404 instead of 401 when the login
	// identifier matches no account.
	RevealUnknownUser bool
	MaxBodyBytes      int64

	Health  HealthCheck
	Metrics RequestMetrics
	Logger  *slog.Logger
}

// NewRouter builds the HTTP handler for the public API.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	errs := errorResponder{logger: logger, revealUnknownUser: deps.RevealUnknownUser}

	authHandler := &AuthHandler{
		service:      deps.Auth,
		sessions:     deps.Sessions,
		tokens:       deps.Tokens,
		errs:         errs,
		maxBodyBytes: maxBody,
	}
	projectHandler := &ProjectHandler{
		service:      deps.Projects,
		errs:         errs,
		maxBodyBytes: maxBody,
	}
	requireIdentity := RequireIdentity(deps.Authorizer, deps.Tokens, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Instrument(logger, deps.Metrics))
	r.Use(Recover(logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "Fundhub API is running")
	})
	r.Get("/healthz", healthHandler(deps.Health, logger))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/", authHandler.Register)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)
			r.Get("/", authHandler.Dashboard)
			r.Get("/dashboard", authHandler.Dashboard)
			r.Get("/sessions", authHandler.Sessions)
			r.Post("/logout-all", authHandler.LogoutAll)
		})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", projectHandler.List)
		r.Get("/{id}", projectHandler.Get)
		r.With(requireIdentity).Post("/", projectHandler.Create)
	})

	return r
}

type healthData struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func healthHandler(check HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "error", err.Error())
				writeJSON(w, http.StatusServiceUnavailable, Envelope{
					Message: msgUnavailable,
					Data:    healthData{Status: "unhealthy", Database: "disconnected"},
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, Envelope{
			Message: "ok",
			Data:    healthData{Status: "healthy", Database: "connected"},
		})
	}
}
