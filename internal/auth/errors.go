// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is the sentinel behind every rejected login.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidSession covers unknown, destroyed, expired and dangling session tokens.
var ErrInvalidSession = errors.New("invalid session")

// ErrStorageUnavailable is wrapped by repositories when the backing store cannot be reached.
var ErrStorageUnavailable = errors.New("storage unavailable")

// DuplicateField names the unique attribute a create collided on.
type DuplicateField string

// Unique identity attributes.
const (
	DuplicateUsername DuplicateField = "username"
	DuplicateEmail    DuplicateField = "email"
)

// DuplicateError reports a uniqueness violation on identity creation.
type DuplicateError struct {
	Field DuplicateField
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// RejectReason is the internal cause of a failed login. It is meant for
// audit logs; the boundary decides whether to expose it.
type RejectReason string

// Login rejection reasons.
const (
	ReasonUnknownIdentity RejectReason = "unknown_identity"
	ReasonBadPassword     RejectReason = "bad_password"
)

// RejectedError is returned by Service.Login on any credential failure.
// Its message never reveals which of the reasons applied.
type RejectedError struct {
	Reason RejectReason
}

func (e *RejectedError) Error() string {
	return ErrInvalidCredentials.Error()
}

// Is reports ErrInvalidCredentials as the matching sentinel.
func (e *RejectedError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
