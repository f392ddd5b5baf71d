// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

/*
Package authz derives role-based capability flags from the session's user.

The derivation is a pure function of the user's roles (plus the legacy
tipo_usuario marker) — no network calls, no async permission lookup. Route
guards and admin screens read these flags instead of inspecting roles
directly.
*/
package authz

import (
	"sync"

	"github.com/changas-app/changas/client"
)

// Role markers recognized in user.Roles.
const (
	roleSuperAdmin = "superadmin"
	roleAdmin      = "admin"
)

// Capabilities is the derived, read-only flag set for a user.
//
// # Invariant
//
// Super-admin implies admin, and every finer-grained flag is a function of
// those two only — flags are monotonic in role level.
type Capabilities struct {
	IsSuperAdmin bool
	IsAdmin      bool

	CanManageUsers       bool
	CanManageRoles       bool
	CanManageServices    bool
	CanModerateContracts bool
	CanViewAdminPanel    bool
}

// None is the no-access flag set, returned for an absent user.
var None = Capabilities{}

// Compute derives the capability flags for a user. Nil yields [None].
func Compute(user *client.User) Capabilities {
	if user == nil {
		return None
	}

	isSuperAdmin := false
	isAdmin := false

	for _, role := range user.Roles {
		switch role {
		case roleSuperAdmin:
			isSuperAdmin = true
		case roleAdmin:
			isAdmin = true
		}
	}

	// Legacy single-role accounts predate the Roles set.
	if user.TipoUsuario == roleAdmin {
		isAdmin = true
	}

	if isSuperAdmin {
		isAdmin = true
	}

	return Capabilities{
		IsSuperAdmin: isSuperAdmin,
		IsAdmin:      isAdmin,

		CanManageUsers:       isAdmin,
		CanManageRoles:       isSuperAdmin,
		CanManageServices:    isAdmin,
		CanModerateContracts: isAdmin,
		CanViewAdminPanel:    isAdmin,
	}
}

// View memoizes [Compute] keyed on the user reference.
//
// Recomputation happens only when the user pointer changes, matching how the
// session controller replaces (never mutates) the profile snapshot on every
// transition.
type View struct {
	mu     sync.Mutex
	last   *client.User
	cached Capabilities
	primed bool
}

// For returns the capability set for the given user, reusing the cached
// result when the reference is unchanged.
func (view *View) For(user *client.User) Capabilities {
	view.mu.Lock()
	defer view.mu.Unlock()

	if view.primed && view.last == user {
		return view.cached
	}

	view.last = user
	view.cached = Compute(user)
	view.primed = true
	return view.cached
}
