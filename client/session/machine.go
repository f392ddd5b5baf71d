// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

/*
Package session implements the client-side session lifecycle.

It is split into three collaborating pieces:

  - a pure state machine (this file): every transition is a reduction from
    (state, action) to a new state, with no side effects;
  - a [Controller] that orchestrates network calls and storage writes around
    the machine;
  - a [CredentialStore] holding the persisted session marker.

Keeping the reducer pure makes every transition testable without mocks.
*/
package session

import "github.com/changas-app/changas/client"

// State is an immutable snapshot of the session.
type State struct {
	// User is the current profile, or nil when no one is signed in.
	User *client.User

	// IsAuthenticated is true iff User is present and no unrecovered
	// authentication failure has occurred since the last successful
	// login, refresh, or restore.
	IsAuthenticated bool

	// Loading is true only while an initialization, login, register, or
	// refresh operation is in flight.
	Loading bool

	// Err is the last surfaced error message, empty when none.
	Err string
}

// InitialState is the machine's starting point: loading, unauthenticated.
func InitialState() State {
	return State{Loading: true}
}

// # Actions
//
// Action is a sealed union: only the types below implement it, and Reduce
// switches over them exhaustively. Adding an action without handling it in
// Reduce is a compile-visible omission, not a silent fallthrough.

// Action marks the session transition types.
type Action interface {
	isAction()
}

// LoginStart begins a login or registration attempt.
type LoginStart struct{}

// LoginSuccess completes a login attempt with the server's payload.
// A nil or user-less payload is treated as a malformed response.
type LoginSuccess struct {
	Payload *client.LoginResult
}

// LoginFailure completes a login attempt with an error message.
type LoginFailure struct {
	Message string
}

// Logout resets the session to its signed-out state.
type Logout struct{}

// UpdateUser shallow-merges a partial patch into the current profile.
type UpdateUser struct {
	Patch client.UserPatch
}

// RefreshStart begins a background profile refresh.
type RefreshStart struct{}

// RefreshSuccess completes a refresh with a fresh profile snapshot.
type RefreshSuccess struct {
	User *client.User
}

// RefreshFailure records a refresh error without signing the user out.
type RefreshFailure struct {
	Message string
}

// RestoreFromStorage optimistically restores a cached profile at startup.
type RestoreFromStorage struct {
	User *client.User
}

// InitComplete marks startup (or a non-authenticating operation) as settled
// with no session established.
type InitComplete struct{}

func (LoginStart) isAction()         {}
func (LoginSuccess) isAction()       {}
func (LoginFailure) isAction()       {}
func (Logout) isAction()             {}
func (UpdateUser) isAction()         {}
func (RefreshStart) isAction()       {}
func (RefreshSuccess) isAction()     {}
func (RefreshFailure) isAction()     {}
func (RestoreFromStorage) isAction() {}
func (InitComplete) isAction()       {}

// ErrInvalidServerResponse is the message recorded when a login "succeeds"
// without a usable user payload.
const ErrInvalidServerResponse = "invalid server response"

// Reduce applies one action to the state and returns the next state.
//
// Reduce is PURE: it never touches storage or the network. Persistence is an
// effect the [Controller] performs after observing the new state.
func Reduce(state State, action Action) State {
	switch a := action.(type) {

	case LoginStart:
		state.Loading = true
		state.Err = ""
		return state

	case LoginSuccess:
		// A success response without a user must never authenticate.
		if a.Payload == nil || a.Payload.User == nil {
			state.IsAuthenticated = false
			state.Loading = false
			state.Err = ErrInvalidServerResponse
			return state
		}
		state.User = a.Payload.User
		state.IsAuthenticated = true
		state.Loading = false
		state.Err = ""
		return state

	case LoginFailure:
		// The stale user snapshot is retained; only an explicit Logout
		// clears it.
		state.IsAuthenticated = false
		state.Loading = false
		state.Err = a.Message
		return state

	case Logout:
		return State{}

	case UpdateUser:
		if state.User == nil {
			return state
		}
		merged := *state.User
		applyPatch(&merged, a.Patch)
		state.User = &merged
		return state

	case RefreshStart:
		// IsAuthenticated is deliberately untouched so a transient refresh
		// does not flicker protected views to "signed out".
		state.Loading = true
		return state

	case RefreshSuccess:
		state.User = a.User
		state.Loading = false
		state.Err = ""
		return state

	case RefreshFailure:
		// Whether this failure ends the session is the controller's call;
		// the machine only records it.
		state.Loading = false
		state.Err = a.Message
		return state

	case RestoreFromStorage:
		state.User = a.User
		state.IsAuthenticated = true
		state.Loading = false
		return state

	case InitComplete:
		state.Loading = false
		return state

	default:
		return state
	}
}

// applyPatch shallow-merges the non-nil patch fields into the user.
func applyPatch(user *client.User, patch client.UserPatch) {
	if patch.DisplayName != nil {
		user.DisplayName = *patch.DisplayName
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.Location != nil {
		user.Location = *patch.Location
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = *patch.AvatarURL
	}
	if patch.CoverURL != nil {
		user.CoverURL = *patch.CoverURL
	}
}
