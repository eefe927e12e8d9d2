// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fundhub/fundhub/internal/auth"
)

// IdentityAuthorizer resolves a session token to its identity.
// *auth.Authorizer implements it.
type IdentityAuthorizer interface {
	Authorize(ctx context.Context, token string) (*auth.Identity, error)
}

// RequestMetrics records completed HTTP requests.
type RequestMetrics interface {
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// RequireIdentity rejects requests without a valid session and stores the
// caller in the request context for the wrapped handler. When both a cookie
// and a bearer token are sent, the bearer token is tried if the cookie's
// session is invalid.
func RequireIdentity(authorizer IdentityAuthorizer, tokens TokenSource, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	errs := errorResponder{logger: logger}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			candidates := tokens.Candidates(r)
			if len(candidates) == 0 {
				writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			var (
				identity *auth.Identity
				err      error
			)
			for _, token := range candidates {
				identity, err = authorizer.Authorize(r.Context(), token)
				if err == nil || !errors.Is(err, auth.ErrInvalidSession) {
					break
				}
			}
			if err != nil {
				errs.respond(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// Instrument logs every request and feeds RequestMetrics. The route label
// is the matched chi pattern so path parameters do not explode cardinality.
func Instrument(logger *slog.Logger, metrics RequestMetrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			if metrics != nil {
				metrics.RecordHTTPRequest(r.Method, route, status, elapsed)
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []any{
				"method", r.Method,
				"route", route,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", float64(elapsed.Microseconds()) / 1000,
				"request_id", middleware.GetReqID(r.Context()),
			}
			logger.Log(r.Context(), level, "http request", attrs...)
		})
	}
}

// Recover turns a panicking handler into a 500 response.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
					"stack", string(debug.Stack()))
				writeMessage(w, http.StatusInternalServerError, msgInternalError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
