// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fundhub/fundhub/internal/auth"
)

// AuthService is the account API consumed by AuthHandler. *auth.Service
// implements it.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Identity, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, identityID ulid.ULID) error
}

// SessionLister lists the live sessions of an identity. *auth.SessionManager
// implements it.
type SessionLister interface {
	ListForIdentity(ctx context.Context, identityID ulid.ULID) ([]*auth.Session, error)
}

type registerBody struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// loginBody accepts exactly one of username or email.
type loginBody struct {
	Username string `json:"username" validate:"required_without=Email,excluded_with=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type loginData struct {
	User      *auth.Identity `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

type userData struct {
	User *auth.Identity `json:"user"`
}

type sessionsData struct {
	Sessions []*auth.Session `json:"sessions"`
}

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	service      AuthService
	sessions     SessionLister
	tokens       TokenSource
	errs         errorResponder
	maxBodyBytes int64
}

// Register creates an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if !decodeJSON(w, r, h.maxBodyBytes, &body) {
		return
	}

	identity, err := h.service.Register(r.Context(), auth.RegisterRequest{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, Envelope{
		Message: "User registered successfully",
		Data:    userData{User: identity},
	})
}

// Login verifies credentials, sets the session cookie and returns the token
// for clients that prefer the Authorization header.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !decodeJSON(w, r, h.maxBodyBytes, &body) {
		return
	}

	result, err := h.service.Login(r.Context(), auth.LoginRequest{
		Username:  body.Username,
		Email:     body.Email,
		Password:  body.Password,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	h.tokens.SetCookie(w, result.Token, result.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, Envelope{
		Message: "Login successful",
		Data: loginData{
			User:      result.Identity,
			Token:     result.Token,
			ExpiresAt: result.Session.ExpiresAt,
		},
	})
}

// Logout revokes the presented session. Missing, unknown and expired
// tokens still succeed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), h.tokens.Token(r)); err != nil {
		h.errs.respond(w, r, err)
		return
	}
	h.tokens.ClearCookie(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// LogoutAll revokes every session of the caller.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	if err := h.service.LogoutAll(r.Context(), identity.ID); err != nil {
		h.errs.respond(w, r, err)
		return
	}
	h.tokens.ClearCookie(w)
	writeMessage(w, http.StatusOK, "Logged out of all sessions")
}

// Dashboard greets the caller.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Message: "Welcome to the dashboard!",
		Data:    userData{User: identity},
	})
}

// Sessions lists the caller's live sessions.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	sessions, err := h.sessions.ListForIdentity(r.Context(), identity.ID)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*auth.Session{}
	}
	writeJSON(w, http.StatusOK, Envelope{
		Message: "Sessions retrieved successfully",
		Data:    sessionsData{Sessions: sessions},
	})
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
