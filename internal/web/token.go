// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package web

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "fundhub_session"

// TokenSource reads and writes the session token of a request. The cookie
// is read before an Authorization: Bearer header when both are present.
type TokenSource struct {
	CookieName string
	Secure     bool
}

func (s TokenSource) cookieName() string {
	if s.CookieName == "" {
		return DefaultCookieName
	}
	return s.CookieName
}

// Token returns the session token carried by r, or "".
func (s TokenSource) Token(r *http.Request) string {
	if token := s.cookieToken(r); token != "" {
		return token
	}
	return bearerToken(r)
}

// Candidates returns every distinct token carried by r, cookie first. A
// stale cookie must not hide a valid bearer token, so RequireIdentity
// tries them in order.
func (s TokenSource) Candidates(r *http.Request) []string {
	var tokens []string
	if token := s.cookieToken(r); token != "" {
		tokens = append(tokens, token)
	}
	if token := bearerToken(r); token != "" && (len(tokens) == 0 || tokens[0] != token) {
		tokens = append(tokens, token)
	}
	return tokens
}

func (s TokenSource) cookieToken(r *http.Request) string {
	if c, err := r.Cookie(s.cookieName()); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SetCookie stores token in an HttpOnly cookie that expires with the session.
func (s TokenSource) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie instructs the client to drop the session cookie.
func (s TokenSource) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
