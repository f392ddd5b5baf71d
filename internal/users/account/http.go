// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/changas-app/changas/internal/platform/middleware"
	requestutil "github.com/changas-app/changas/internal/platform/request"
	"github.com/changas-app/changas/internal/platform/respond"
	"github.com/changas-app/changas/internal/platform/validate"
)

// Handler implements profile-related HTTP endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] with the profile routes.
//
// The /me routes require authentication; the slug lookup is public so
// listings can link to worker profiles.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{slug}", handler.getBySlug)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Get("/me", handler.me)
		protected.Patch("/me", handler.updateMe)
	})

	return router
}

type updateRequest struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
	Location    *string `json:"location"`
	AvatarURL   *string `json:"avatar_url"`
	CoverURL    *string `json:"cover_url"`
}

/*
me returns the authenticated user's own profile.

GET /api/v1/users/me

Description: Resolves the account from the session claims and returns the
fresh database snapshot (not the stale claims payload).

Response:
  - 200: User: Full profile
  - 401: ErrUnauthorized: Not authenticated
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetByID(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
updateMe applies a shallow partial update to the caller's profile.

PATCH /api/v1/users/me

Description: Only the fields present in the body are changed. Email, role,
and verification status are immutable through this endpoint.

Request:
  - Body: updateRequest (all fields optional)

Response:
  - 200: User: Updated profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 401: ErrUnauthorized: Not authenticated
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	user, err := handler.accountService.Update(request.Context(), userID, UpdateInput{
		DisplayName: input.DisplayName,
		Phone:       input.Phone,
		Location:    input.Location,
		AvatarURL:   input.AvatarURL,
		CoverURL:    input.CoverURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
getBySlug returns a public profile by its URL slug.

GET /api/v1/users/{slug}

Response:
  - 200: User: Public profile
  - 404: ErrNotFound: No account with that slug
*/
func (handler *Handler) getBySlug(writer http.ResponseWriter, request *http.Request) {
	slug := requestutil.Param(request, "slug")

	user, err := handler.accountService.GetBySlug(request.Context(), slug)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
