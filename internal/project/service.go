// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package project

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fundhub/fundhub/internal/auth"
)

var tracer = otel.Tracer("fundhub/project")

// Service creates and reads projects.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for deadline checks.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("PROJECT_SERVICE_INVALID").Errorf("project repository is required")
	}
	s := &Service{
		repo:   repo,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create stores a project owned by the identity carried in ctx.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	ctx, span := tracer.Start(ctx, "project.Create")
	defer span.End()

	creator, ok := auth.IdentityFromContext(ctx)
	if !ok {
		span.SetStatus(codes.Error, "unauthenticated")
		return nil, oops.Code("PROJECT_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}

	p, err := NewProject(creator.ID, req, s.now())
	if err != nil {
		span.SetStatus(codes.Error, "invalid project")
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, oops.Code("PROJECT_CREATE_FAILED").
			With("creator_id", creator.ID.String()).
			Wrap(err)
	}

	span.SetAttributes(attribute.String("project.id", p.ID.String()))
	s.logger.InfoContext(ctx, "project created",
		"project_id", p.ID.String(),
		"creator_id", creator.ID.String())
	return p, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, oops.Code("PROJECT_GET_FAILED").With("project_id", id.String()).Wrap(err)
	}
	return p, nil
}

// List returns projects matching filter. An unset creator lists everyone's.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Project, error) {
	projects, err := s.repo.List(ctx, filter.Normalize())
	if err != nil {
		return nil, oops.Code("PROJECT_LIST_FAILED").Wrap(err)
	}
	return projects, nil
}
