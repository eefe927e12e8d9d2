// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package auth

import (
	"context"
	"regexp"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// Password policy constraints.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

// MaxEmailLength is the longest address accepted.
const MaxEmailLength = 254

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var emailValidator = validator.New()

// Identity is a registered account.
type Identity struct {
	ID           ulid.ULID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

// NewIdentity creates a validated Identity with a fresh ID.
func NewIdentity(username, email, passwordHash string) (*Identity, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("IDENTITY_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	return &Identity{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Redacted returns a copy of the identity without its password hash.
func (i *Identity) Redacted() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.PasswordHash = ""
	return &c
}

// ValidateUsername validates a username against rules.
// Usernames are MinUsernameLength to MaxUsernameLength characters of
// letters, digits and underscores.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username can only contain letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail checks that email is a plausible address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if err := emailValidator.Var(email, "email"); err != nil {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("please provide a valid email address")
	}
	return nil
}

// ValidatePassword enforces the registration password policy: length
// bounds plus at least one lowercase letter, one uppercase letter and one
// digit.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return oops.Code("AUTH_WEAK_PASSWORD").
			Errorf("password must contain at least one lowercase letter, one uppercase letter, and one number")
	}
	return nil
}

// IdentityRepository manages identity persistence.
type IdentityRepository interface {
	// Create stores a new identity. A username or email collision returns
	// an error wrapping *DuplicateError.
	Create(ctx context.Context, identity *Identity) error

	// GetByID retrieves an identity by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Identity, error)

	// GetByUsername retrieves an identity by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*Identity, error)

	// GetByEmail retrieves an identity by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// UpdatePasswordHash replaces the stored digest and stamps UpdatedAt.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Delete removes an identity.
	Delete(ctx context.Context, id ulid.ULID) error
}
