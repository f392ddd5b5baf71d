// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package sec

// # User Roles

// Role represents an authorization marker attached to an account.
//
// Accounts carry a set of roles. The legacy `tipo_usuario` field maps a
// pre-roles account onto exactly one of these markers.
type Role string

const (
	// Unrestricted system access, including role management
	RoleSuperAdmin Role = "superadmin"

	// Can manage users and moderate marketplace content
	RoleAdmin Role = "admin"

	// Verified service provider offering work on the marketplace
	RoleWorker Role = "trabajador"

	// Default role for clients hiring workers
	RoleClient Role = "cliente"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r Role) AtLeast(target Role) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {

	// Linear scale (10-40) allows for future intermediate roles
	switch r {
	case RoleSuperAdmin:
		return 40
	case RoleAdmin:
		return 30
	case RoleWorker:
		return 20
	case RoleClient:
		return 10
	default:
		return 0
	}
}

// MaxRole returns the highest-privilege role in the set, or RoleClient for
// an empty set.
func MaxRole(roles []Role) Role {
	highest := RoleClient
	for _, role := range roles {
		if role.AtLeast(highest) {
			highest = role
		}
	}
	return highest
}
