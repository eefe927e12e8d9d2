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

const sessionColumns = `id, identity_id, token_hash, user_agent, ip_address, expires_at, created_at, last_seen_at`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db store.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db store.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID.String(),
		session.IdentityID.String(),
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	)
	if err != nil {
		return dbError("SESSION_INSERT_FAILED", "insert session", err, "identity_id", session.IdentityID.String())
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash. Expired rows are
// returned; the caller decides what expiry means.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("SESSION_GET_BY_TOKEN_FAILED", "get session by token hash", err)
	}
	return session, nil
}

// ListByIdentity returns the identity's sessions unexpired at now, newest first.
func (r *SessionRepository) ListByIdentity(ctx context.Context, identityID ulid.ULID, now time.Time) ([]*auth.Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE identity_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`, identityID.String(), now)
	if err != nil {
		return nil, dbError("SESSION_LIST_FAILED", "list sessions by identity", err, "identity_id", identityID.String())
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").With("operation", "scan session row").Wrap(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("SESSION_ROWS_ERROR", "iterate session rows", err)
	}
	return sessions, nil
}

// Touch updates last_seen_at.
func (r *SessionRepository) Touch(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	result, err := r.db.Exec(ctx, `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id.String(), lastSeen)
	if err != nil {
		return dbError("SESSION_TOUCH_FAILED", "update last_seen_at", err, "id", id.String())
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByTokenHash removes a session. Deleting an absent session is not an error.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return dbError("SESSION_DELETE_FAILED", "delete session", err)
	}
	return nil
}

// DeleteByIdentity removes every session of an identity.
func (r *SessionRepository) DeleteByIdentity(ctx context.Context, identityID ulid.ULID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE identity_id = $1`, identityID.String())
	if err != nil {
		return 0, dbError("SESSION_DELETE_BY_IDENTITY_FAILED", "delete sessions by identity", err, "identity_id", identityID.String())
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes sessions with expires_at <= now and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, dbError("SESSION_DELETE_EXPIRED_FAILED", "delete expired sessions", err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans one row. pgx.ErrNoRows is returned unwrapped.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr, identityIDStr string
		session              auth.Session
	)
	if err := row.Scan(
		&idStr,
		&identityIDStr,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.LastSeenAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	identityID, err := ulid.Parse(identityIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_IDENTITY_ID").With("identity_id", identityIDStr).Wrap(err)
	}
	session.ID = id
	session.IdentityID = identityID
	return &session, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
