// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Authorizer turns a session token into a hydrated identity.
type Authorizer struct {
	sessions   *SessionManager
	identities IdentityRepository
	logger     *slog.Logger
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(sessions *SessionManager, identities IdentityRepository, logger *slog.Logger) (*Authorizer, error) {
	if sessions == nil {
		return nil, oops.Code("AUTHORIZER_INVALID").Errorf("session manager is required")
	}
	if identities == nil {
		return nil, oops.Code("AUTHORIZER_INVALID").Errorf("identity repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{sessions: sessions, identities: identities, logger: logger}, nil
}

// Authorize resolves token and loads its identity. Unknown, expired and
// dangling tokens return an error matching ErrInvalidSession. The returned
// identity carries no password hash.
func (a *Authorizer) Authorize(ctx context.Context, token string) (*Identity, error) {
	identityID, err := a.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	identity, err := a.identities.GetByID(ctx, identityID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTHORIZE_FAILED").
				With("operation", "get identity").
				With("identity_id", identityID.String()).
				Wrap(err)
		}

		// The identity was removed after the session was issued.
		if destroyErr := a.sessions.Destroy(ctx, token); destroyErr != nil {
			a.logger.WarnContext(ctx, "best-effort dangling session cleanup failed",
				"operation", "destroy_dangling_session",
				"identity_id", identityID.String(),
				"error", destroyErr.Error())
		}
		return nil, invalidSession()
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("identity.id", identity.ID.String()))
	return identity.Redacted(), nil
}
