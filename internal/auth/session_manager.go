// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionManager issues, resolves and revokes session tokens.
type SessionManager struct {
	repo       SessionRepository
	defaultTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
	metrics    Metrics
}

// SessionManagerOption configures a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithDefaultTTL sets the lifetime used when Create is called with ttl <= 0.
func WithDefaultTTL(ttl time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.defaultTTL = ttl
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSessionMetrics sets the metrics sink.
func WithSessionMetrics(metrics Metrics) SessionManagerOption {
	return func(m *SessionManager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// NewSessionManager creates a SessionManager backed by repo.
func NewSessionManager(repo SessionRepository, opts ...SessionManagerOption) (*SessionManager, error) {
	if repo == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("session repository is required")
	}
	m := &SessionManager{
		repo:       repo,
		defaultTTL: DefaultSessionTTL,
		now:        time.Now,
		logger:     slog.Default(),
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create mints a session for identityID and returns the plaintext token.
func (m *SessionManager) Create(ctx context.Context, identityID ulid.ULID, ttl time.Duration, client ClientInfo) (string, *Session, error) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", nil, err
	}

	now := m.now().UTC()
	session, err := NewSession(identityID, tokenHash, client, now, now.Add(ttl))
	if err != nil {
		return "", nil, err
	}

	if err := m.repo.Create(ctx, session); err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	return token, session, nil
}

// Resolve maps a token to its identity ID. Unknown, destroyed and expired
// tokens all yield the same ErrInvalidSession.
func (m *SessionManager) Resolve(ctx context.Context, token string) (ulid.ULID, error) {
	session, err := m.lookup(ctx, token)
	if err != nil {
		return ulid.ULID{}, err
	}
	return session.IdentityID, nil
}

func (m *SessionManager) lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		m.metrics.RecordSessionResolution(OutcomeInvalid)
		return nil, invalidSession()
	}

	tokenHash := HashSessionToken(token)
	session, err := m.repo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.metrics.RecordSessionResolution(OutcomeInvalid)
			return nil, invalidSession()
		}
		m.metrics.RecordSessionResolution(OutcomeError)
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	now := m.now()
	if session.IsExpiredAt(now) {
		m.metrics.RecordSessionResolution(OutcomeInvalid)
		if delErr := m.repo.DeleteByTokenHash(ctx, tokenHash); delErr != nil {
			m.logger.WarnContext(ctx, "best-effort expired session cleanup failed",
				"operation", "delete_expired_session",
				"session_id", session.ID.String(),
				"error", delErr.Error())
		}
		return nil, invalidSession()
	}

	if touchErr := m.repo.Touch(ctx, session.ID, now.UTC()); touchErr != nil {
		m.logger.DebugContext(ctx, "best-effort session touch failed",
			"operation", "touch_session",
			"session_id", session.ID.String(),
			"error", touchErr.Error())
	}

	m.metrics.RecordSessionResolution(OutcomeSuccess)
	return session, nil
}

// Destroy revokes the session behind token. It is idempotent.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.DeleteByTokenHash(ctx, HashSessionToken(token)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// ListForIdentity returns the unexpired sessions of an identity.
func (m *SessionManager) ListForIdentity(ctx context.Context, identityID ulid.ULID) ([]*Session, error) {
	sessions, err := m.repo.ListByIdentity(ctx, identityID, m.now().UTC())
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	return sessions, nil
}

// DestroyAllForIdentity revokes every session of an identity and returns
// how many were removed.
func (m *SessionManager) DestroyAllForIdentity(ctx context.Context, identityID ulid.ULID) (int64, error) {
	n, err := m.repo.DeleteByIdentity(ctx, identityID)
	if err != nil {
		return 0, oops.Code("SESSION_DESTROY_ALL_FAILED").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	return n, nil
}

// Sweep deletes expired sessions. Expiry is enforced by Resolve regardless;
// sweeping only reclaims storage.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	m.metrics.RecordSessionsSwept(n)
	return n, nil
}

func invalidSession() error {
	return oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
}
