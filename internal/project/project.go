// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package project contains the crowdfunding project domain: validation,
// persistence contracts and a service that binds new projects to the
// authenticated caller.
package project

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fundhub/fundhub/internal/auth"
)

// Validation limits.
const (
	MinTitleLength       = 5
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
	MinGoalAmount        = 1
	MaxGoalAmount        = 1_000_000
)

// List paging bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("project not found")

// ErrUnauthenticated is returned when an operation that needs a creator
// runs without an authenticated identity in the context.
var ErrUnauthenticated = errors.New("authentication required")

// ErrStorageUnavailable is shared with the auth package so the HTTP layer
// maps one sentinel to 503.
var ErrStorageUnavailable = auth.ErrStorageUnavailable

// Project is a funding campaign owned by its creator.
type Project struct {
	ID            ulid.ULID  `json:"id"`
	CreatorID     ulid.ULID  `json:"creatorId"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	GoalAmount    int64      `json:"goalAmount"`
	CurrentAmount int64      `json:"currentAmount"`
	Deadline      *time.Time `json:"deadline"`
	IsCompleted   bool       `json:"isCompleted"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt"`
}

// CreateRequest holds the caller-supplied fields of a new project. The
// creator is never part of it.
type CreateRequest struct {
	Title       string
	Description string
	GoalAmount  int64
	Deadline    *time.Time
}

// ValidationError reports an invalid project field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks req against the project rules as of now.
func (req CreateRequest) Validate(now time.Time) error {
	titleLen := utf8.RuneCountInString(req.Title)
	switch {
	case titleLen < MinTitleLength:
		return invalid("title", "must be at least 5 characters")
	case titleLen > MaxTitleLength:
		return invalid("title", "must be at most 100 characters")
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return invalid("description", "must be at most 1000 characters")
	}
	if req.GoalAmount < MinGoalAmount || req.GoalAmount > MaxGoalAmount {
		return invalid("goalAmount", "must be between 1 and 1000000")
	}
	if req.Deadline != nil && !req.Deadline.After(now) {
		return invalid("deadline", "must be in the future")
	}
	return nil
}

func invalid(field, msg string) error {
	return oops.Code("PROJECT_INVALID").
		With("field", field).
		Wrap(&ValidationError{Field: field, Message: msg})
}

// NewProject validates req and creates a Project owned by creatorID.
func NewProject(creatorID ulid.ULID, req CreateRequest, now time.Time) (*Project, error) {
	if creatorID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("PROJECT_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	var deadline *time.Time
	if req.Deadline != nil {
		d := req.Deadline.UTC()
		deadline = &d
	}

	return &Project{
		ID:          ulid.Make(),
		CreatorID:   creatorID,
		Title:       req.Title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		Deadline:    deadline,
		CreatedAt:   now.UTC(),
	}, nil
}

// ListFilter narrows and pages List results. Results are newest first.
type ListFilter struct {
	CreatorID *ulid.ULID
	Limit     int
	Offset    int
}

// Normalize clamps the paging fields into their accepted ranges.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Repository manages project persistence.
type Repository interface {
	// Create stores a new project.
	Create(ctx context.Context, p *Project) error

	// GetByID retrieves a project by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Project, error)

	// List returns projects matching filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Project, error)
}
