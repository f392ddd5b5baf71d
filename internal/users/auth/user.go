// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and logic for authentication,
authorization, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"

	"github.com/changas-app/changas/internal/platform/sec"
)

// # User Types

// UserType is the legacy single-role account classifier.
//
// Newer accounts also carry a Roles set; TipoUsuario is kept because the SPA
// and older API consumers still branch on it.
type UserType string

const (
	// UserTypeCliente is a client hiring workers.
	UserTypeCliente UserType = "cliente"

	// UserTypeTrabajador is a verified worker offering services.
	UserTypeTrabajador UserType = "trabajador"

	// UserTypeAdmin is a marketplace administrator.
	UserTypeAdmin UserType = "admin"
)

// # Domain Entities

// User represents a registered member of the Changas marketplace.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string     `json:"display_name"`
	Slug         string     `json:"slug"`
	TipoUsuario  UserType   `json:"tipo_usuario"`
	Roles        []sec.Role `json:"roles"`
	IsVerified   bool       `json:"is_verified"`
	Phone        string     `json:"phone,omitempty"`
	Location     string     `json:"location,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	CoverURL     string     `json:"cover_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Session represents an active refresh-token session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldDisplayName = "display_name"
	FieldTipoUsuario = "tipo_usuario"
	FieldPhone       = "phone"
	FieldLocation    = "location"
	FieldToken       = "token"
	FieldUser        = "user"
	FieldMessage     = "message"
)
