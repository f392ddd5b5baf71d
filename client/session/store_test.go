// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changas-app/changas/client"
	"github.com/changas-app/changas/client/session"
)

func fileStore(t *testing.T) (*session.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "changas", "session.json")
	return session.NewFileStore(path), path
}

/*
TestFileStore_RoundTrip saves a profile and loads it back.
*/
func TestFileStore_RoundTrip(t *testing.T) {
	store, _ := fileStore(t)

	// Fresh store: no marker, no profile.
	user, marker, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.False(t, marker)

	require.NoError(t, store.Save(&client.User{ID: "u1", Email: "ana@changas.app"}))

	user, marker, err = store.Load()
	require.NoError(t, err)
	assert.True(t, marker)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "ana@changas.app", user.Email)
}

/*
TestFileStore_CorruptProfileKeepsMarker: an unreadable profile still counts
as a session marker, so startup verifies against the server instead of
silently logging the user out.
*/
func TestFileStore_CorruptProfileKeepsMarker(t *testing.T) {
	store, path := fileStore(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	user, marker, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.True(t, marker)
}

/*
TestFileStore_ClearIdempotent removes the marker and tolerates replays.
*/
func TestFileStore_ClearIdempotent(t *testing.T) {
	store, path := fileStore(t)

	require.NoError(t, store.Save(&client.User{ID: "u1"}))
	require.NoError(t, store.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear())

	_, marker, err := store.Load()
	require.NoError(t, err)
	assert.False(t, marker)
}

/*
TestFileStore_Permissions writes the profile readable only by the owner.
*/
func TestFileStore_Permissions(t *testing.T) {
	store, path := fileStore(t)
	require.NoError(t, store.Save(&client.User{ID: "u1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
