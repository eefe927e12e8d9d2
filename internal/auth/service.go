// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("fundhub/auth")

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// LoginRequest carries submitted credentials. Exactly one of Username or
// Email identifies the account.
type LoginRequest struct {
	Username  string
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Identity *Identity
	Token    string
	Session  *Session
}

// Service provides registration, login and logout.
type Service struct {
	identities IdentityRepository
	sessions   *SessionManager
	hasher     PasswordHasher
	logger     *slog.Logger
	metrics    Metrics
	sessionTTL time.Duration

	// dummyHash is verified when the account does not exist. It is made by
	// the same hasher as real digests so both failure paths cost the same.
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for audit and best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithSessionTTL sets the lifetime of sessions minted by Login. Zero keeps
// the session manager's default.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

// NewService creates a new Service.
func NewService(identities IdentityRepository, sessions *SessionManager, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if identities == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("identity repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}

	s := &Service{
		identities: identities,
		sessions:   sessions,
		hasher:     hasher,
		logger:     slog.Default(),
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := newDummyHash(hasher)
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy
	return s, nil
}

// newDummyHash digests a random secret that is discarded, so the result
// never matches any password.
func newDummyHash(hasher PasswordHasher) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	digest, err := hasher.Hash(hex.EncodeToString(secret))
	if err != nil {
		return "", oops.Code("AUTH_SERVICE_INVALID").
			With("operation", "hash dummy password").
			Wrap(err)
	}
	return digest, nil
}

// Register validates and stores a new identity. The returned identity has
// no password hash.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	identity, err := s.register(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")

		var dup *DuplicateError
		if errors.As(err, &dup) {
			s.metrics.RecordRegistration(OutcomeDuplicate)
		} else {
			s.metrics.RecordRegistration(OutcomeError)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("identity.id", identity.ID.String()))
	s.metrics.RecordRegistration(OutcomeSuccess)
	s.logger.InfoContext(ctx, "identity registered",
		"identity_id", identity.ID.String(),
		"username", identity.Username)
	return identity.Redacted(), nil
}

func (s *Service) register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	if err := ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	identity, err := NewIdentity(req.Username, req.Email, digest)
	if err != nil {
		return nil, err
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create identity").
			With("username", req.Username).
			Wrap(err)
	}
	return identity, nil
}

// Login verifies credentials and mints a session. Every credential failure
// returns an error wrapping *RejectedError; no session exists afterwards.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	result, err := s.login(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, "login failed")

		var rejected *RejectedError
		if errors.As(err, &rejected) {
			span.SetAttributes(attribute.String("auth.reject_reason", string(rejected.Reason)))
			s.metrics.RecordLogin(loginOutcome(rejected.Reason))
			s.logger.InfoContext(ctx, "login rejected",
				"reason", string(rejected.Reason),
				"username", req.Username,
				"ip_address", req.IPAddress)
		} else {
			span.RecordError(err)
			s.metrics.RecordLogin(OutcomeError)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("identity.id", result.Identity.ID.String()))
	s.metrics.RecordLogin(OutcomeSuccess)
	s.logger.InfoContext(ctx, "login succeeded",
		"identity_id", result.Identity.ID.String(),
		"session_id", result.Session.ID.String())
	return result, nil
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	identity, lookupErr := s.lookup(ctx, req)

	var targetHash string
	switch {
	case lookupErr == nil:
		targetHash = identity.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = s.dummyHash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get identity").
			Wrap(lookupErr)
	}

	// Always verify so unknown accounts cost the same as wrong passwords.
	valid := s.hasher.Verify(req.Password, targetHash)

	if identity == nil {
		return nil, rejected(ReasonUnknownIdentity)
	}
	if !valid {
		return nil, rejected(ReasonBadPassword)
	}

	if s.hasher.NeedsUpgrade(identity.PasswordHash) {
		s.upgradeHash(ctx, identity, req.Password)
	}

	token, session, err := s.sessions.Create(ctx, identity.ID, s.sessionTTL, ClientInfo{
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			With("identity_id", identity.ID.String()).
			Wrap(err)
	}

	return &LoginResult{
		Identity: identity.Redacted(),
		Token:    token,
		Session:  session,
	}, nil
}

func (s *Service) lookup(ctx context.Context, req LoginRequest) (*Identity, error) {
	switch {
	case req.Username != "" && req.Email == "":
		return s.identities.GetByUsername(ctx, req.Username)
	case req.Email != "" && req.Username == "":
		return s.identities.GetByEmail(ctx, req.Email)
	default:
		// Ambiguous or empty identifier: treat as an unknown account.
		return nil, ErrNotFound
	}
}

func (s *Service) upgradeHash(ctx context.Context, identity *Identity, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password rehash failed",
			"operation", "rehash",
			"identity_id", identity.ID.String(),
			"error", err.Error())
		return
	}
	if err := s.identities.UpdatePasswordHash(ctx, identity.ID, digest); err != nil {
		s.logger.WarnContext(ctx, "best-effort password rehash failed",
			"operation", "update_password_hash",
			"identity_id", identity.ID.String(),
			"error", err.Error())
		return
	}
	identity.PasswordHash = digest
}

// Logout revokes the session behind token. Unknown or expired tokens are
// not an error; only storage failures are returned.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "destroy session").
			Wrap(err)
	}
	return nil
}

// LogoutAll revokes every session of an identity.
func (s *Service) LogoutAll(ctx context.Context, identityID ulid.ULID) error {
	n, err := s.sessions.DestroyAllForIdentity(ctx, identityID)
	if err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "destroy all sessions").
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "all sessions revoked",
		"identity_id", identityID.String(),
		"count", n)
	return nil
}

func rejected(reason RejectReason) error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(&RejectedError{Reason: reason})
}
