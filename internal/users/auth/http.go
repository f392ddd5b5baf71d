// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

/*
Package auth provides the HTTP delivery layer for user identity management.

It implements the gateway for the authentication lifecycle — from account
creation to session management.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface.
  - Security: Both credentials (session JWT and refresh token) travel ONLY in
    HttpOnly cookies, never in response bodies the SPA would have to store.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/changas-app/changas/internal/platform/apperr"
	"github.com/changas-app/changas/internal/platform/constants"
	"github.com/changas-app/changas/internal/platform/middleware"
	requestutil "github.com/changas-app/changas/internal/platform/request"
	"github.com/changas-app/changas/internal/platform/respond"
	"github.com/changas-app/changas/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the session lifecycle entry
// points (Registration, Login, Logout, Refresh, Email Verification).
type Handler struct {
	authService *Service

	// secureCookies is false only in development so the cookies survive
	// plain-http localhost round trips.
	secureCookies bool
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{authService: service, secureCookies: secureCookies}
}

// Routes returns a [chi.Router] configured with the session lifecycle routes.
//
// # Endpoints
//   - POST /login   : Authenticates and sets the session cookies.
//   - POST /refresh : Rotates the refresh token and re-issues the session cookie.
//   - POST /logout  : Revokes the session and clears cookies.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/verify-email", handler.verifyEmail)

	// Logout is deliberately NOT behind RequireAuth: a client whose session
	// token already expired must still be able to tear its session down.
	router.Post("/logout", handler.logout)

	return router
}

// Register handles POST /users/register; it is mounted by the server under
// the /users route group rather than /auth, matching the public API surface.
func (handler *Handler) Register(writer http.ResponseWriter, request *http.Request) {
	handler.register(writer, request)
}

// # Request Payloads

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	TipoUsuario string `json:"tipo_usuario"`
	Phone       string `json:"phone"`
	Location    string `json:"location"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

/*
register handles the creation of a new user account.

POST /api/v1/users/register

Description: Validates input, checks for identity conflicts, and persists
a new user profile. Registration does NOT authenticate: the response carries
no session cookies and the client must log in afterwards.

Request:
  - Body: registerRequest (Email, Password, DisplayName, TipoUsuario, ...)

Response:
  - 201: User: Created user profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Required(FieldDisplayName, input.DisplayName).
		MinLen(FieldDisplayName, input.DisplayName, 2).
		OneOf(FieldTipoUsuario, input.TipoUsuario, string(UserTypeCliente), string(UserTypeTrabajador))

	if input.Phone != "" {
		validator.Phone(FieldPhone, input.Phone)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
		TipoUsuario: UserType(input.TipoUsuario),
		Phone:       input.Phone,
		Location:    input.Location,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
login authenticates a user and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials, then injects two HttpOnly cookies: the
short-lived session JWT (sent with every API call) and the long-lived refresh
token (path-scoped to /api/v1/auth). The body carries the user snapshot plus
the session token for the SPA's in-memory bookkeeping only — clients must
never persist it.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: {user, message, token}
  - 401: ErrUnauthorized: "Credenciales inválidas"
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)

	respond.OK(writer, map[string]any{
		FieldUser:    session.User,
		FieldMessage: "ok",
		FieldToken:   session.SessionToken,
	})
}

/*
logout terminates the current user session.

POST /api/v1/auth/logout

Description: Invalidates the refresh token (if present) and clears the
security cookies from the client. Idempotent: a second call, or a call with
an already-dead session, still succeeds.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)

	if err == nil && cookie != nil && cookie.Value != "" {
		_ = handler.authService.Logout(request.Context(), cookie.Value)
	}

	handler.clearSessionCookies(writer)

	respond.NoContent(writer)
}

/*
refresh issues a new session cookie using a valid refresh token.

POST /api/v1/auth/refresh

Description: Rotates the session by validating the refresh token cookie and
re-issuing both cookies. No request body: the refresh credential travels only
in its cookie.

Response:
  - 200: {message}
  - 401: ErrUnauthorized: Missing, revoked, or expired refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized("Falta el token de actualización"))
		return
	}

	session, err := handler.authService.RefreshSession(
		request.Context(),
		cookie.Value,
		request.UserAgent(),
		middleware.RealIP(request),
	)

	if err != nil {
		// A dead refresh token means the session is unrecoverable: clear the
		// cookies so the browser stops presenting stale credentials.
		if appErr := apperr.As(err); appErr != nil && appErr.HTTPStatus == http.StatusUnauthorized {
			handler.clearSessionCookies(writer)
		}
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, session)

	respond.OK(writer, map[string]any{
		FieldMessage: "ok",
	})
}

/*
verifyEmail confirms a user's email ownership.

POST /api/v1/auth/verify-email

Description: Validates an email verification token and marks the account as verified.

Request:
  - Body: verifyEmailRequest (Token)

Response:
  - 200: Success: Email verified
  - 400: ErrInvalidJSON: Missing or invalid token
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "is required"))
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Email verificado correctamente",
	})
}

// # Cookie Helpers

// setSessionCookies writes both HttpOnly credentials for an established session.
func (handler *Handler) setSessionCookies(writer http.ResponseWriter, session *LoginSession) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionTokenCookieName,
		Value:    session.SessionToken,
		Path:     constants.SessionTokenCookiePath,
		MaxAge:   int(SessionTokenTTL.Seconds()),
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    session.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  session.RefreshTokenExpiresAt,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both credentials on the client.
func (handler *Handler) clearSessionCookies(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionTokenCookieName,
		Value:    "",
		Path:     constants.SessionTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
