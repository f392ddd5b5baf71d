// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

/*
Package account implements the user profile management domain.

It covers everything a member does with their own account after
authentication (viewing and editing the profile) plus the public
worker profile lookup used by service listings.
*/
package account

import (
	"context"
	"fmt"

	"github.com/changas-app/changas/internal/platform/validate"
	"github.com/changas-app/changas/internal/users/auth"
	"github.com/changas-app/changas/pkg/pointer"
)

// Service implements profile management use cases.
type Service struct {
	userRepository auth.UserRepository
}

// NewService constructs a new account [Service].
func NewService(userRepository auth.UserRepository) *Service {
	return &Service{userRepository: userRepository}
}

// GetByID returns the full profile for the given account ID.
func (service *Service) GetByID(context context.Context, userID string) (*auth.User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetBySlug returns the public profile for the given slug.
//
// The password hash never leaves the entity's JSON form, so the same struct
// doubles as the public projection.
func (service *Service) GetBySlug(context context.Context, slug string) (*auth.User, error) {
	user, err := service.userRepository.FindBySlug(context, slug)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateInput holds the optional profile fields for a shallow partial update.
//
// Nil pointers mean "leave unchanged"; empty strings are legitimate values
// that clear the field.
type UpdateInput struct {
	DisplayName *string
	Phone       *string
	Location    *string
	AvatarURL   *string
	CoverURL    *string
}

// Update applies a shallow partial update to the caller's own profile.
//
// # Parameters
//   - context: Context for the database operation.
//   - userID: The authenticated account being updated.
//   - input: Only non-nil fields are applied.
//
// # Returns
//   - The updated [*auth.User] snapshot.
func (service *Service) Update(context context.Context, userID string, input UpdateInput) (*auth.User, error) {
	// ── 1. Validation ─────────────────────────────────────────────────────

	validator := &validate.Validator{}

	if input.DisplayName != nil {
		validator.Required(auth.FieldDisplayName, *input.DisplayName).
			MinLen(auth.FieldDisplayName, *input.DisplayName, 2).
			MaxLen(auth.FieldDisplayName, *input.DisplayName, 80)
	}
	if input.Phone != nil && *input.Phone != "" {
		validator.Phone(auth.FieldPhone, *input.Phone)
	}
	if input.AvatarURL != nil && *input.AvatarURL != "" {
		validator.URL("avatar_url", *input.AvatarURL)
	}
	if input.CoverURL != nil && *input.CoverURL != "" {
		validator.URL("cover_url", *input.CoverURL)
	}

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Load Current State ─────────────────────────────────────────────

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	// ── 3. Merge (Shallow) ────────────────────────────────────────────────

	user.DisplayName = pointer.Fallback(input.DisplayName, user.DisplayName)
	user.Phone = pointer.Fallback(input.Phone, user.Phone)
	user.Location = pointer.Fallback(input.Location, user.Location)
	user.AvatarURL = pointer.Fallback(input.AvatarURL, user.AvatarURL)
	user.CoverURL = pointer.Fallback(input.CoverURL, user.CoverURL)

	// ── 4. Persist ────────────────────────────────────────────────────────

	if err := service.userRepository.Update(context, user); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	return user, nil
}
