// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package client

import "time"

// User is the profile snapshot returned by the API.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Slug        string    `json:"slug"`
	TipoUsuario string    `json:"tipo_usuario"`
	Roles       []string  `json:"roles"`
	IsVerified  bool      `json:"is_verified"`
	Phone       string    `json:"phone,omitempty"`
	Location    string    `json:"location,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Credentials is the login request payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the account creation payload.
type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	TipoUsuario string `json:"tipo_usuario"`
	Phone       string `json:"phone,omitempty"`
	Location    string `json:"location,omitempty"`
}

// UserPatch is a shallow partial profile update. Nil fields are untouched.
type UserPatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Location    *string `json:"location,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	CoverURL    *string `json:"cover_url,omitempty"`
}

// LoginResult is the payload of a successful login.
//
// Token is surfaced for in-memory bookkeeping only; the credential the API
// actually honors travels in the HttpOnly cookie the transport forwards
// automatically. Callers must never persist it.
type LoginResult struct {
	User    *User  `json:"user"`
	Message string `json:"message"`
	Token   string `json:"token"`
}
