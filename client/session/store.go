// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/changas-app/changas/client"
)

// CredentialStore persists the session marker and the cached user profile.
//
// # Security
//
// The store never holds tokens: the bearer credentials live in HttpOnly
// cookies managed by the server. What is stored here is only an optimization
// — "a session probably exists" plus a profile snapshot to render
// immediately on startup. It is never trusted for authorization.
type CredentialStore interface {

	/*
		Load reads the cached profile.

		Returns:
		  - *client.User: Cached profile, possibly nil when the marker exists
		    without a readable profile
		  - bool: Whether a session marker exists at all
		  - error: Read failures
	*/
	Load() (*client.User, bool, error)

	/*
		Save writes the profile snapshot, creating the session marker.

		Parameters:
		  - user: *client.User

		Returns:
		  - error: Write failures
	*/
	Save(user *client.User) error

	/*
		Clear removes the marker and the cached profile. Idempotent.

		Returns:
		  - error: Removal failures (absence is not a failure)
	*/
	Clear() error
}

// # File-Backed Store

// FileStore is a [CredentialStore] backed by a single JSON document.
// File presence is the session marker.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStorePath returns the conventional session file location under the
// user's config directory.
func DefaultStorePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: failed to resolve config dir: %w", err)
	}
	return filepath.Join(configDir, "changas", "session.json"), nil
}

func (store *FileStore) Load() (*client.User, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	data, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session: failed to read store: %w", err)
	}

	var user client.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		// Marker exists but the profile is unreadable; the controller must
		// verify against the server before trusting anything.
		return nil, true, nil
	}

	return &user, true, nil
}

func (store *FileStore) Save(user *client.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: failed to serialize profile: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(store.path), 0o700); err != nil {
		return fmt.Errorf("session: failed to create store dir: %w", err)
	}

	if err := os.WriteFile(store.path, data, 0o600); err != nil {
		return fmt.Errorf("session: failed to write store: %w", err)
	}
	return nil
}

func (store *FileStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	err := os.Remove(store.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: failed to clear store: %w", err)
	}
	return nil
}

// # In-Memory Store

// MemoryStore is a [CredentialStore] for tests and throwaway sessions.
type MemoryStore struct {
	mu     sync.Mutex
	user   *client.User
	marker bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (store *MemoryStore) Load() (*client.User, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if !store.marker {
		return nil, false, nil
	}
	if store.user == nil {
		return nil, true, nil
	}
	clone := *store.user
	return &clone, true, nil
}

func (store *MemoryStore) Save(user *client.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	clone := *user
	store.user = &clone
	store.marker = true
	return nil
}

func (store *MemoryStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.user = nil
	store.marker = false
	return nil
}

// SetMarker forces the marker flag without a cached profile. Test helper for
// the "marker present, profile missing" startup path.
func (store *MemoryStore) SetMarker() {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.marker = true
}
