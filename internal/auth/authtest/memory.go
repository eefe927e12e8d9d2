// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package authtest provides in-memory repositories for tests.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fundhub/fundhub/internal/auth"
)

// IdentityStore is an in-memory auth.IdentityRepository. Uniqueness of
// username and email is case-insensitive, matching the database indexes.
type IdentityStore struct {
	mu         sync.Mutex
	byID       map[ulid.ULID]auth.Identity
	byUsername map[string]ulid.ULID
	byEmail    map[string]ulid.ULID
}

// NewIdentityStore creates an empty IdentityStore.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byID:       make(map[ulid.ULID]auth.Identity),
		byUsername: make(map[string]ulid.ULID),
		byEmail:    make(map[string]ulid.ULID),
	}
}

// Create implements auth.IdentityRepository.
func (s *IdentityStore) Create(_ context.Context, identity *auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uname, email := strings.ToLower(identity.Username), strings.ToLower(identity.Email)
	if _, ok := s.byUsername[uname]; ok {
		return &auth.DuplicateError{Field: auth.DuplicateUsername}
	}
	if _, ok := s.byEmail[email]; ok {
		return &auth.DuplicateError{Field: auth.DuplicateEmail}
	}

	s.byID[identity.ID] = *identity
	s.byUsername[uname] = identity.ID
	s.byEmail[email] = identity.ID
	return nil
}

// GetByID implements auth.IdentityRepository.
func (s *IdentityStore) GetByID(_ context.Context, id ulid.ULID) (*auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// GetByUsername implements auth.IdentityRepository.
func (s *IdentityStore) GetByUsername(_ context.Context, username string) (*auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.get(id)
}

// GetByEmail implements auth.IdentityRepository.
func (s *IdentityStore) GetByEmail(_ context.Context, email string) (*auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.get(id)
}

// UpdatePasswordHash implements auth.IdentityRepository.
func (s *IdentityStore) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	now := time.Now().UTC()
	identity.PasswordHash = passwordHash
	identity.UpdatedAt = &now
	s.byID[id] = identity
	return nil
}

// Delete implements auth.IdentityRepository.
func (s *IdentityStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byUsername, strings.ToLower(identity.Username))
	delete(s.byEmail, strings.ToLower(identity.Email))
	return nil
}

// Len returns the number of stored identities.
func (s *IdentityStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *IdentityStore) get(id ulid.ULID) (*auth.Identity, error) {
	identity, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &identity, nil
}

// SessionStore is an in-memory auth.SessionRepository.
type SessionStore struct {
	mu     sync.Mutex
	byHash map[string]auth.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{byHash: make(map[string]auth.Session)}
}

// Create implements auth.SessionRepository.
func (s *SessionStore) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[session.TokenHash] = *session
	return nil
}

// GetByTokenHash implements auth.SessionRepository.
func (s *SessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byHash[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &session, nil
}

// ListByIdentity implements auth.SessionRepository.
func (s *SessionStore) ListByIdentity(_ context.Context, identityID ulid.ULID, now time.Time) ([]*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auth.Session
	for _, session := range s.byHash {
		if session.IdentityID == identityID && !session.IsExpiredAt(now) {
			out = append(out, &session)
		}
	}
	return out, nil
}

// Touch implements auth.SessionRepository.
func (s *SessionStore) Touch(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, session := range s.byHash {
		if session.ID == id {
			session.LastSeenAt = lastSeen
			s.byHash[hash] = session
			return nil
		}
	}
	return auth.ErrNotFound
}

// DeleteByTokenHash implements auth.SessionRepository.
func (s *SessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byHash, tokenHash)
	return nil
}

// DeleteByIdentity implements auth.SessionRepository.
func (s *SessionStore) DeleteByIdentity(_ context.Context, identityID ulid.ULID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, session := range s.byHash {
		if session.IdentityID == identityID {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

// DeleteExpired implements auth.SessionRepository.
func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, session := range s.byHash {
		if session.IsExpiredAt(now) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

// FastHasher returns an argon2id hasher with minimal cost for tests.
func FastHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 64, Threads: 1})
}

var (
	_ auth.IdentityRepository = (*IdentityStore)(nil)
	_ auth.SessionRepository  = (*SessionStore)(nil)
)
