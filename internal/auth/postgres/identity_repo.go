// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fundhub/fundhub/internal/auth"
	"github.com/fundhub/fundhub/internal/store"
)

// Unique index names from the identities migration.
const (
	usernameConstraint = "identities_username_key"
	emailConstraint    = "identities_email_key"
)

const identityColumns = `id, username, email, password_hash, created_at, updated_at`

// IdentityRepository implements auth.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	db store.DB
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(db store.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create stores a new identity. Uniqueness is enforced by the
// case-insensitive unique indexes; a violation becomes *auth.DuplicateError.
func (r *IdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO identities (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		identity.ID.String(),
		identity.Username,
		identity.Email,
		identity.PasswordHash,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	if constraint, ok := store.UniqueViolation(err); ok {
		if field, known := duplicateField(constraint); known {
			return oops.Code("IDENTITY_DUPLICATE").
				With("field", string(field)).
				With("constraint", constraint).
				Wrap(&auth.DuplicateError{Field: field})
		}
	}
	return dbError("IDENTITY_CREATE_FAILED", "insert identity", err, "username", identity.Username)
}

// duplicateField maps a unique index to the identity field it guards.
func duplicateField(constraint string) (auth.DuplicateField, bool) {
	switch constraint {
	case usernameConstraint:
		return auth.DuplicateUsername, true
	case emailConstraint:
		return auth.DuplicateEmail, true
	default:
		return "", false
	}
}

// GetByID retrieves an identity by ID.
func (r *IdentityRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id.String())
	return r.getOne(row, "get identity by id", "id", id.String())
}

// GetByUsername retrieves an identity by username (case-insensitive).
func (r *IdentityRepository) GetByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE LOWER(username) = LOWER($1)`, username)
	return r.getOne(row, "get identity by username", "username", username)
}

// GetByEmail retrieves an identity by email (case-insensitive).
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE LOWER(email) = LOWER($1)`, email)
	return r.getOne(row, "get identity by email", "email", email)
}

// UpdatePasswordHash replaces the stored digest and stamps updated_at.
func (r *IdentityRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE identities SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return dbError("IDENTITY_UPDATE_FAILED", "update password hash", err, "id", id.String())
	}
	if result.RowsAffected() == 0 {
		return oops.Code("IDENTITY_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes an identity.
func (r *IdentityRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id.String())
	if err != nil {
		return dbError("IDENTITY_DELETE_FAILED", "delete identity", err, "id", id.String())
	}
	if result.RowsAffected() == 0 {
		return oops.Code("IDENTITY_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

func (r *IdentityRepository) getOne(row pgx.Row, operation, key, value string) (*auth.Identity, error) {
	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("IDENTITY_GET_FAILED", operation, err, key, value)
	}
	return identity, nil
}

// scanIdentity scans one row. pgx.ErrNoRows is returned unwrapped.
func scanIdentity(row pgx.Row) (*auth.Identity, error) {
	var (
		idStr     string
		identity  auth.Identity
		updatedAt *time.Time
	)
	if err := row.Scan(
		&idStr,
		&identity.Username,
		&identity.Email,
		&identity.PasswordHash,
		&identity.CreatedAt,
		&updatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("IDENTITY_INVALID_ID").With("id", idStr).Wrap(err)
	}
	identity.ID = id
	identity.UpdatedAt = updatedAt
	return &identity, nil
}

// Compile-time interface check.
var _ auth.IdentityRepository = (*IdentityRepository)(nil)
