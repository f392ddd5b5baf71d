// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changas-app/changas/client"
	"github.com/changas-app/changas/client/session"
)

func testUser() *client.User {
	return &client.User{
		ID:          "1",
		Email:       "a@b.com",
		DisplayName: "Ana",
		TipoUsuario: "cliente",
		Roles:       []string{"cliente"},
	}
}

/*
TestReduce_InitialState verifies the machine starts loading and signed out.
*/
func TestReduce_InitialState(t *testing.T) {
	state := session.InitialState()

	assert.True(t, state.Loading)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Err)
}

/*
TestReduce_LoginFlow walks the happy login path.
*/
func TestReduce_LoginFlow(t *testing.T) {
	state := session.InitialState()

	state = session.Reduce(state, session.LoginStart{})
	assert.True(t, state.Loading)
	assert.Empty(t, state.Err)

	state = session.Reduce(state, session.LoginSuccess{
		Payload: &client.LoginResult{User: testUser(), Message: "ok"},
	})

	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Err)
	require.NotNil(t, state.User)
	assert.Equal(t, "a@b.com", state.User.Email)
}

/*
TestReduce_MalformedLoginNeverAuthenticates checks that a success response
without a user payload records an error and stays signed out.
*/
func TestReduce_MalformedLoginNeverAuthenticates(t *testing.T) {
	tests := []struct {
		name    string
		payload *client.LoginResult
	}{
		{"nil_payload", nil},
		{"payload_without_user", &client.LoginResult{Message: "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := session.Reduce(session.InitialState(), session.LoginStart{})
			state = session.Reduce(state, session.LoginSuccess{Payload: tt.payload})

			assert.False(t, state.IsAuthenticated)
			assert.False(t, state.Loading)
			assert.Equal(t, session.ErrInvalidServerResponse, state.Err)
		})
	}
}

/*
TestReduce_LoginFailureKeepsStaleUser checks that a failed login records the
message without wiping a previously loaded user snapshot.
*/
func TestReduce_LoginFailureKeepsStaleUser(t *testing.T) {
	state := session.Reduce(session.State{User: testUser(), IsAuthenticated: true}, session.LoginStart{})
	state = session.Reduce(state, session.LoginFailure{Message: "Credenciales inválidas"})

	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Equal(t, "Credenciales inválidas", state.Err)
	assert.NotNil(t, state.User)
}

/*
TestReduce_Logout verifies the full reset.
*/
func TestReduce_Logout(t *testing.T) {
	state := session.State{User: testUser(), IsAuthenticated: true, Err: "old"}
	state = session.Reduce(state, session.Logout{})

	assert.Equal(t, session.State{}, state)
}

/*
TestReduce_RefreshDoesNotFlicker verifies that a refresh keeps the session
authenticated for its whole duration, success or transient failure.
*/
func TestReduce_RefreshDoesNotFlicker(t *testing.T) {
	authenticated := session.State{User: testUser(), IsAuthenticated: true}

	inFlight := session.Reduce(authenticated, session.RefreshStart{})
	assert.True(t, inFlight.IsAuthenticated, "refreshStart must not sign the user out")
	assert.True(t, inFlight.Loading)

	failed := session.Reduce(inFlight, session.RefreshFailure{Message: "timeout"})
	assert.True(t, failed.IsAuthenticated, "a transient refresh failure must not sign the user out")
	assert.False(t, failed.Loading)
	assert.Equal(t, "timeout", failed.Err)

	fresh := testUser()
	fresh.DisplayName = "Ana María"
	succeeded := session.Reduce(inFlight, session.RefreshSuccess{User: fresh})
	assert.True(t, succeeded.IsAuthenticated)
	assert.Empty(t, succeeded.Err)
	assert.Equal(t, "Ana María", succeeded.User.DisplayName)
}

/*
TestReduce_UpdateUserShallowMerge verifies the partial patch semantics:
present fields replace, absent fields survive.
*/
func TestReduce_UpdateUserShallowMerge(t *testing.T) {
	original := testUser()
	original.Phone = "+54 11 5555-0001"
	original.Location = "Buenos Aires"

	state := session.State{User: original, IsAuthenticated: true}

	newName := "Ana G."
	state = session.Reduce(state, session.UpdateUser{Patch: client.UserPatch{
		DisplayName: &newName,
	}})

	require.NotNil(t, state.User)
	assert.Equal(t, "Ana G.", state.User.DisplayName)
	assert.Equal(t, "Buenos Aires", state.User.Location, "untouched fields survive")
	assert.Equal(t, "+54 11 5555-0001", state.User.Phone)
	assert.True(t, state.IsAuthenticated, "patching never alters authentication")

	// The original snapshot is never mutated in place.
	assert.Equal(t, "Ana", original.DisplayName)
}

/*
TestReduce_UpdateUserWithoutUser is a no-op when no one is signed in.
*/
func TestReduce_UpdateUserWithoutUser(t *testing.T) {
	name := "ghost"
	state := session.Reduce(session.State{}, session.UpdateUser{Patch: client.UserPatch{DisplayName: &name}})

	assert.Nil(t, state.User)
}

/*
TestReduce_RestoreFromStorage verifies the optimistic startup path.
*/
func TestReduce_RestoreFromStorage(t *testing.T) {
	state := session.Reduce(session.InitialState(), session.RestoreFromStorage{User: testUser()})

	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	require.NotNil(t, state.User)
}

/*
TestReduce_InitComplete settles startup as signed out.
*/
func TestReduce_InitComplete(t *testing.T) {
	state := session.Reduce(session.InitialState(), session.InitComplete{})

	assert.False(t, state.Loading)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
}
