// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package projecttest provides an in-memory project repository for tests.
package projecttest

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/fundhub/fundhub/internal/project"
)

// Store is an in-memory project.Repository.
type Store struct {
	mu       sync.Mutex
	projects []project.Project
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Create implements project.Repository.
func (s *Store) Create(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, *p)
	return nil
}

// GetByID implements project.Repository.
func (s *Store) GetByID(_ context.Context, id ulid.ULID) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			p := s.projects[i]
			return &p, nil
		}
	}
	return nil, project.ErrNotFound
}

// List implements project.Repository. Newest first, like the SQL store.
func (s *Store) List(_ context.Context, filter project.ListFilter) ([]*project.Project, error) {
	filter = filter.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*project.Project
	for i := len(s.projects) - 1; i >= 0; i-- {
		p := s.projects[i]
		if filter.CreatorID != nil && p.CreatorID != *filter.CreatorID {
			continue
		}
		matched = append(matched, &p)
	}
	slices.SortStableFunc(matched, func(a, b *project.Project) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []*project.Project{}, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Len returns the number of stored projects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}
