// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/changas-app/changas/internal/platform/apperr"
	"github.com/changas-app/changas/internal/platform/dberr"
)

// # In-Memory Repositories
//
// These implementations back the test suites and the local demo mode. They
// honor the same contracts as the Postgres/Redis repositories, including
// expiry and revocation filtering.

// MemoryUserRepository is a map-backed [UserRepository].
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by ID
}

// NewMemoryUserRepository constructs an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*User)}
}

func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, found := repository.users[id]
	if !found {
		return nil, dberr.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (repository *MemoryUserRepository) FindBySlug(_ context.Context, slug string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if user.Slug == slug {
			clone := *user
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperr.Conflict("Resource already exists")
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	clone := *user
	repository.users[user.ID] = &clone
	return nil
}

func (repository *MemoryUserRepository) Update(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, found := repository.users[user.ID]
	if !found {
		return dberr.ErrNotFound
	}

	stored.DisplayName = user.DisplayName
	stored.Phone = user.Phone
	stored.Location = user.Location
	stored.AvatarURL = user.AvatarURL
	stored.CoverURL = user.CoverURL
	stored.UpdatedAt = time.Now()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (repository *MemoryUserRepository) MarkVerified(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, found := repository.users[userID]
	if !found {
		return dberr.ErrNotFound
	}
	stored.IsVerified = true
	stored.UpdatedAt = time.Now()
	return nil
}

// MemorySessionRepository is a map-backed [SessionRepository].
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by ID
}

// NewMemorySessionRepository constructs an empty in-memory session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]*Session)}
}

func (repository *MemorySessionRepository) Create(_ context.Context, session *Session) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	session.CreatedAt = time.Now()
	clone := *session
	repository.sessions[session.ID] = &clone
	return nil
}

func (repository *MemorySessionRepository) FindByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, session := range repository.sessions {
		if session.TokenHash == tokenHash && !session.IsRevoked && session.ExpiresAt.After(time.Now()) {
			clone := *session
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (repository *MemorySessionRepository) Revoke(_ context.Context, sessionID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	session, found := repository.sessions[sessionID]
	if !found {
		return dberr.ErrNotFound
	}
	session.IsRevoked = true
	return nil
}

func (repository *MemorySessionRepository) RevokeAll(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, session := range repository.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (repository *MemorySessionRepository) DeleteExpired(_ context.Context) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for id, session := range repository.sessions {
		if session.ExpiresAt.Before(time.Now()) {
			delete(repository.sessions, id)
		}
	}
	return nil
}

// MemoryVerificationTokenRepository is a map-backed [VerificationTokenRepository].
type MemoryVerificationTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]memoryToken
}

type memoryToken struct {
	userID    string
	expiresAt time.Time
}

// NewMemoryVerificationTokenRepository constructs an empty in-memory token repository.
func NewMemoryVerificationTokenRepository() *MemoryVerificationTokenRepository {
	return &MemoryVerificationTokenRepository{tokens: make(map[string]memoryToken)}
}

func (repository *MemoryVerificationTokenRepository) Set(_ context.Context, token string, userID string, ttl time.Duration) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.tokens[token] = memoryToken{userID: userID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (repository *MemoryVerificationTokenRepository) Get(_ context.Context, token string) (string, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	entry, found := repository.tokens[token]
	if !found || entry.expiresAt.Before(time.Now()) {
		return "", dberr.ErrNotFound
	}
	return entry.userID, nil
}

func (repository *MemoryVerificationTokenRepository) Delete(_ context.Context, token string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	delete(repository.tokens, token)
	return nil
}
