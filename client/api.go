// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package client

import (
	"context"
)

// envelope mirrors the server's success wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

// Login authenticates with the given credentials.
//
// On success the server sets the HttpOnly session cookies on the client's
// jar; the returned [LoginResult] carries the user snapshot. A success
// response without a user is surfaced as [ErrMalformedResponse] and must not
// be treated as authenticated.
func (c *Client) Login(ctx context.Context, credentials Credentials) (*LoginResult, error) {
	var response envelope[LoginResult]
	if err := c.post(ctx, "/auth/login", credentials, &response); err != nil {
		return nil, err
	}

	if response.Data.User == nil {
		return nil, ErrMalformedResponse
	}

	return &response.Data, nil
}

// Register creates a new account.
//
// Registration never authenticates: no cookies are set and the caller must
// log in explicitly afterwards.
func (c *Client) Register(ctx context.Context, registration Registration) (*User, error) {
	var response envelope[User]
	if err := c.post(ctx, "/users/register", registration, &response); err != nil {
		return nil, err
	}

	if response.Data.ID == "" {
		return nil, ErrMalformedResponse
	}

	return &response.Data, nil
}

// Logout revokes the current session server-side and clears the cookies.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", nil, nil)
}

// Refresh explicitly rotates the session using the refresh cookie.
//
// Most callers never need this: the transport performs silent refreshes on
// 401 automatically.
func (c *Client) Refresh(ctx context.Context) error {
	return c.post(ctx, refreshPath, nil, nil)
}

// Me returns the authenticated user's current snapshot.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var response envelope[User]
	if err := c.get(ctx, "/users/me", &response); err != nil {
		return nil, err
	}

	if response.Data.ID == "" {
		return nil, ErrMalformedResponse
	}

	return &response.Data, nil
}

// UpdateMe applies a shallow partial update to the authenticated user's
// profile and returns the updated snapshot.
func (c *Client) UpdateMe(ctx context.Context, patch UserPatch) (*User, error) {
	var response envelope[User]
	if err := c.patch(ctx, "/users/me", patch, &response); err != nil {
		return nil, err
	}

	if response.Data.ID == "" {
		return nil, ErrMalformedResponse
	}

	return &response.Data, nil
}
