// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundhub/fundhub/internal/auth"
	"github.com/fundhub/fundhub/internal/auth/postgres"
	"github.com/fundhub/fundhub/pkg/errutil"
)

var sessionCols = []string{"id", "identity_id", "token_hash", "user_agent", "ip_address", "expires_at", "created_at", "last_seen_at"}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	session, err := auth.NewSession(ulid.Make(), "hash", auth.ClientInfo{UserAgent: "ua", IPAddress: "10.0.0.1"}, now, now.Add(time.Hour))
	require.NoError(t, err)

	t.Run("inserts row", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(session.ID.String(), session.IdentityID.String(), "hash", "ua", "10.0.0.1", session.ExpiresAt, now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewSessionRepository(mock).Create(ctx, session))
	})

	t.Run("failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("syntax error"))

		err := postgres.NewSessionRepository(mock).Create(ctx, session)
		errutil.AssertErrorCode(t, err, "SESSION_INSERT_FAILED")
	})
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	id, identityID := ulid.Make(), ulid.Make()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token_hash = $1")).
			WithArgs("hash").
			WillReturnRows(pgxmock.NewRows(sessionCols).
				AddRow(id.String(), identityID.String(), "hash", "ua", "10.0.0.1", now.Add(time.Hour), now, now))

		got, err := postgres.NewSessionRepository(mock).GetByTokenHash(ctx, "hash")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, identityID, got.IdentityID)
		assert.Equal(t, now.Add(time.Hour), got.ExpiresAt)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token_hash = $1")).
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		_, err := postgres.NewSessionRepository(mock).GetByTokenHash(ctx, "nope")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("unreachable", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token_hash = $1")).
			WithArgs("hash").
			WillReturnError(dialError())

		_, err := postgres.NewSessionRepository(mock).GetByTokenHash(ctx, "hash")
		assert.ErrorIs(t, err, auth.ErrStorageUnavailable)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_ListByIdentity(t *testing.T) {
	ctx := context.Background()
	identityID := ulid.Make()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE identity_id = $1 AND expires_at > $2")).
		WithArgs(identityID.String(), now).
		WillReturnRows(pgxmock.NewRows(sessionCols).
			AddRow(ulid.Make().String(), identityID.String(), "h1", "", "", now.Add(time.Hour), now, now).
			AddRow(ulid.Make().String(), identityID.String(), "h2", "", "", now.Add(2*time.Hour), now, now))

	sessions, err := postgres.NewSessionRepository(mock).ListByIdentity(ctx, identityID, now)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "h1", sessions[0].TokenHash)
}

func TestSessionRepository_Deletes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("delete by token hash absent is not an error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec("DELETE FROM sessions WHERE token_hash").
			WithArgs("hash").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.NoError(t, postgres.NewSessionRepository(mock).DeleteByTokenHash(ctx, "hash"))
	})

	t.Run("delete by identity returns count", func(t *testing.T) {
		mock := newMockPool(t)
		identityID := ulid.Make()
		mock.ExpectExec("DELETE FROM sessions WHERE identity_id").
			WithArgs(identityID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := postgres.NewSessionRepository(mock).DeleteByIdentity(ctx, identityID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("delete expired uses inclusive bound", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at <= $1")).
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 5))

		n, err := postgres.NewSessionRepository(mock).DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})

	t.Run("touch missing row", func(t *testing.T) {
		mock := newMockPool(t)
		id := ulid.Make()
		mock.ExpectExec("UPDATE sessions SET last_seen_at").
			WithArgs(id.String(), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := postgres.NewSessionRepository(mock).Touch(ctx, id, now)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
