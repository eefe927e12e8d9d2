// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package postgres implements project.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fundhub/fundhub/internal/project"
	"github.com/fundhub/fundhub/internal/store"
)

const projectColumns = `id, creator_id, title, description, goal_amount, current_amount, deadline, is_completed, created_at, updated_at`

// Repository implements project.Repository using PostgreSQL.
type Repository struct {
	db store.DB
}

// NewRepository creates a new Repository.
func NewRepository(db store.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new project. A creator that no longer exists fails the
// foreign key and is reported as project.ErrUnauthenticated.
func (r *Repository) Create(ctx context.Context, p *project.Project) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		p.ID.String(),
		p.CreatorID.String(),
		p.Title,
		p.Description,
		p.GoalAmount,
		p.CurrentAmount,
		p.Deadline,
		p.IsCompleted,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err == nil {
		return nil
	}
	if store.ForeignKeyViolation(err) {
		return oops.Code("PROJECT_CREATOR_MISSING").
			With("creator_id", p.CreatorID.String()).
			Wrap(project.ErrUnauthenticated)
	}
	return dbError("PROJECT_CREATE_FAILED", "insert project", err, "project_id", p.ID.String())
}

// GetByID retrieves a project by ID.
func (r *Repository) GetByID(ctx context.Context, id ulid.ULID) (*project.Project, error) {
	row := r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id.String())
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROJECT_NOT_FOUND").With("project_id", id.String()).Wrap(project.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("PROJECT_GET_FAILED", "get project", err, "project_id", id.String())
	}
	return p, nil
}

// List returns projects newest first. A nil creator matches every project.
func (r *Repository) List(ctx context.Context, filter project.ListFilter) ([]*project.Project, error) {
	filter = filter.Normalize()

	var creator *string
	if filter.CreatorID != nil {
		s := filter.CreatorID.String()
		creator = &s
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE ($1::text IS NULL OR creator_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, creator, filter.Limit, filter.Offset)
	if err != nil {
		return nil, dbError("PROJECT_LIST_FAILED", "list projects", err)
	}
	defer rows.Close()

	projects := make([]*project.Project, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, oops.Code("PROJECT_SCAN_FAILED").With("operation", "scan project row").Wrap(err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("PROJECT_ROWS_ERROR", "iterate project rows", err)
	}
	return projects, nil
}

func scanProject(row pgx.Row) (*project.Project, error) {
	var (
		idStr, creatorStr string
		p                 project.Project
		deadline          *time.Time
		updatedAt         *time.Time
	)
	if err := row.Scan(
		&idStr,
		&creatorStr,
		&p.Title,
		&p.Description,
		&p.GoalAmount,
		&p.CurrentAmount,
		&deadline,
		&p.IsCompleted,
		&p.CreatedAt,
		&updatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	var err error
	if p.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("PROJECT_PARSE_FAILED").With("id", idStr).Wrap(err)
	}
	if p.CreatorID, err = ulid.Parse(creatorStr); err != nil {
		return nil, oops.Code("PROJECT_PARSE_FAILED").With("creator_id", creatorStr).Wrap(err)
	}
	p.Deadline = deadline
	p.UpdatedAt = updatedAt
	return &p, nil
}

func dbError(code, operation string, err error, kv ...any) error {
	b := oops.Code(code).With("operation", operation).With(kv...)
	if store.IsUnavailable(err) {
		return b.Code("STORAGE_UNAVAILABLE").Wrap(fmt.Errorf("%w: %w", project.ErrStorageUnavailable, err))
	}
	return b.Wrap(err)
}

// Compile-time interface check.
var _ project.Repository = (*Repository)(nil)
