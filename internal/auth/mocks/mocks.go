// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package mocks provides testify mocks for the auth repositories and hasher.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/fundhub/fundhub/internal/auth"
)

// MockIdentityRepository is a mock of auth.IdentityRepository.
type MockIdentityRepository struct {
	mock.Mock
}

// NewMockIdentityRepository creates a mock whose expectations are asserted on cleanup.
func NewMockIdentityRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockIdentityRepository {
	m := &MockIdentityRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	ret := m.Called(ctx, identity)
	return ret.Error(0)
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Identity, error) {
	ret := m.Called(ctx, id)
	return identityOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockIdentityRepository) GetByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	ret := m.Called(ctx, username)
	return identityOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockIdentityRepository) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	ret := m.Called(ctx, email)
	return identityOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockIdentityRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	ret := m.Called(ctx, id, passwordHash)
	return ret.Error(0)
}

func (m *MockIdentityRepository) Delete(ctx context.Context, id ulid.ULID) error {
	ret := m.Called(ctx, id)
	return ret.Error(0)
}

func identityOrNil(v any) *auth.Identity {
	if v == nil {
		return nil
	}
	return v.(*auth.Identity)
}

// MockSessionRepository is a mock of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock whose expectations are asserted on cleanup.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ret := m.Called(ctx, session)
	return ret.Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	var s *auth.Session
	if v := ret.Get(0); v != nil {
		s = v.(*auth.Session)
	}
	return s, ret.Error(1)
}

func (m *MockSessionRepository) ListByIdentity(ctx context.Context, identityID ulid.ULID, now time.Time) ([]*auth.Session, error) {
	ret := m.Called(ctx, identityID, now)
	var s []*auth.Session
	if v := ret.Get(0); v != nil {
		s = v.([]*auth.Session)
	}
	return s, ret.Error(1)
}

func (m *MockSessionRepository) Touch(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	ret := m.Called(ctx, id, lastSeen)
	return ret.Error(0)
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	ret := m.Called(ctx, tokenHash)
	return ret.Error(0)
}

func (m *MockSessionRepository) DeleteByIdentity(ctx context.Context, identityID ulid.ULID) (int64, error) {
	ret := m.Called(ctx, identityID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock whose expectations are asserted on cleanup.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, digest string) bool {
	ret := m.Called(password, digest)
	return ret.Bool(0)
}

func (m *MockPasswordHasher) NeedsUpgrade(digest string) bool {
	ret := m.Called(digest)
	return ret.Bool(0)
}

var (
	_ auth.IdentityRepository = (*MockIdentityRepository)(nil)
	_ auth.SessionRepository  = (*MockSessionRepository)(nil)
	_ auth.PasswordHasher     = (*MockPasswordHasher)(nil)
)
