// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fundhub/fundhub/internal/auth"
	"github.com/fundhub/fundhub/internal/project"
	"github.com/fundhub/fundhub/pkg/errutil"
)

// Response messages shared by handlers and middleware.
const (
	msgValidationFailed = "Validation failed"
	msgBadCredentials   = "Incorrect username or password"
	msgUnknownUser      = "User not found"
	msgUnauthorized     = "Authentication required"
	msgNotFound         = "Not found"
	msgUnavailable      = "Service temporarily unavailable"
	msgInternalError    = "Internal server error"
	msgMethodNotAllowed = "Method not allowed"
	msgRequestTooLarge  = "Request body too large"
	msgMalformedJSON    = "Malformed JSON request body"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson // the status line is already sent
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Message: msg})
}

func writeValidation(w http.ResponseWriter, fields ...FieldError) {
	writeJSON(w, http.StatusBadRequest, Envelope{Message: msgValidationFailed, Errors: fields})
}

// authValidationFields maps auth validation codes to the request field they reject.
var authValidationFields = map[string]string{
	"AUTH_INVALID_USERNAME": "username",
	"AUTH_INVALID_EMAIL":    "email",
	"AUTH_WEAK_PASSWORD":    "password",
	"AUTH_EMPTY_PASSWORD":   "password",
}

// errorResponder translates core errors into HTTP responses. Only the
// status and a generic message leave the process; details go to the log.
type errorResponder struct {
	logger            *slog.Logger
	revealUnknownUser bool
}

func (e errorResponder) respond(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejected   *auth.RejectedError
		duplicate  *auth.DuplicateError
		validation *project.ValidationError
	)

	switch {
	case errors.As(err, &rejected):
		if e.revealUnknownUser && rejected.Reason == auth.ReasonUnknownIdentity {
			writeMessage(w, http.StatusNotFound, msgUnknownUser)
			return
		}
		writeMessage(w, http.StatusUnauthorized, msgBadCredentials)
	case errors.As(err, &duplicate):
		writeJSON(w, http.StatusConflict, Envelope{
			Message: duplicateMessage(duplicate.Field),
			Errors:  []FieldError{{Field: string(duplicate.Field), Message: "already exists"}},
		})
	case errors.As(err, &validation):
		writeValidation(w, FieldError{Field: validation.Field, Message: validation.Message})
	case authValidationFields[errutil.Code(err)] != "":
		writeValidation(w, FieldError{Field: authValidationFields[errutil.Code(err)], Message: rootMessage(err)})
	case errors.Is(err, auth.ErrStorageUnavailable):
		e.logger.WarnContext(r.Context(), "storage unavailable",
			"path", r.URL.Path,
			"error", err.Error())
		writeMessage(w, http.StatusServiceUnavailable, msgUnavailable)
	case errors.Is(err, auth.ErrInvalidSession), errors.Is(err, project.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, project.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgNotFound)
	default:
		errutil.LogErrorContext(r.Context(), e.logger, "request failed", err)
		writeMessage(w, http.StatusInternalServerError, msgInternalError)
	}
}

func duplicateMessage(field auth.DuplicateField) string {
	switch field {
	case auth.DuplicateEmail:
		return "Email already exists"
	default:
		return "Username already exists"
	}
}

// rootMessage returns the message of the innermost error in the chain.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
