// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package auth_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changas-app/changas/internal/platform/apperr"
	"github.com/changas-app/changas/internal/platform/constants"
	"github.com/changas-app/changas/internal/platform/sec"
	"github.com/changas-app/changas/internal/users/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type serviceFixture struct {
	service      *auth.Service
	users        *auth.MemoryUserRepository
	sessions     *auth.MemorySessionRepository
	verification *auth.MemoryVerificationTokenRepository
	tokens       *sec.TokenService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	tokens, err := sec.NewTokenService(testSecret, constants.AuthIssuer)
	require.NoError(t, err)

	users := auth.NewMemoryUserRepository()
	sessions := auth.NewMemorySessionRepository()
	verification := auth.NewMemoryVerificationTokenRepository()

	return &serviceFixture{
		service:      auth.NewService(users, sessions, verification, tokens, slog.New(slog.DiscardHandler)),
		users:        users,
		sessions:     sessions,
		verification: verification,
		tokens:       tokens,
	}
}

func registerInput() auth.RegisterInput {
	return auth.RegisterInput{
		Email:       "ana@changas.app",
		Password:    "secreto123",
		DisplayName: "Ana García",
		TipoUsuario: auth.UserTypeCliente,
		Location:    "Buenos Aires",
	}
}

/*
TestService_Register covers account creation: hashing, slug derivation, and
the initial role set.
*/
func TestService_Register(t *testing.T) {
	fixture := newServiceFixture(t)

	user, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ana@changas.app", user.Email)
	assert.Equal(t, auth.UserTypeCliente, user.TipoUsuario)
	assert.Equal(t, []sec.Role{sec.RoleClient}, user.Roles)
	assert.False(t, user.IsVerified)

	// Slug derived from the display name, accent-folded.
	assert.Equal(t, "ana-garcia", user.Slug)

	// The password never survives in plain text.
	assert.NotEqual(t, "secreto123", user.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("secreto123", user.PasswordHash))
}

/*
TestService_RegisterDuplicateEmail rejects an email that already exists.
*/
func TestService_RegisterDuplicateEmail(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	_, err = fixture.service.Register(context.Background(), registerInput())
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.Equal(t, "El email ya está registrado", appErr.Message)
}

/*
TestService_RegisterSlugCollision suffixes the slug when the plain form is taken.
*/
func TestService_RegisterSlugCollision(t *testing.T) {
	fixture := newServiceFixture(t)

	first, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	second := registerInput()
	second.Email = "otra.ana@changas.app"
	other, err := fixture.service.Register(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, "ana-garcia", first.Slug)
	assert.NotEqual(t, first.Slug, other.Slug)
	assert.Contains(t, other.Slug, "ana-garcia-")
}

/*
TestService_Login covers the credential check and session issuance.
*/
func TestService_Login(t *testing.T) {
	fixture := newServiceFixture(t)
	_, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	session, err := fixture.service.Login(context.Background(), auth.LoginInput{
		Email:    "ana@changas.app",
		Password: "secreto123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, session.SessionToken)
	assert.NotEmpty(t, session.RefreshToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "ana@changas.app", session.User.Email)

	// The session JWT round-trips through the verifier with the right claims.
	claims, err := fixture.tokens.VerifyToken(session.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "cliente", claims.TipoUsuario)
	assert.Contains(t, claims.Roles, "cliente")
}

/*
TestService_LoginInvalidCredentials answers the same generic message for an
unknown email and for a wrong password, preventing account enumeration.
*/
func TestService_LoginInvalidCredentials(t *testing.T) {
	fixture := newServiceFixture(t)
	_, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	tests := []struct {
		name  string
		input auth.LoginInput
	}{
		{"unknown_email", auth.LoginInput{Email: "nadie@changas.app", Password: "secreto123"}},
		{"wrong_password", auth.LoginInput{Email: "ana@changas.app", Password: "incorrecta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.service.Login(context.Background(), tt.input)
			require.Error(t, err)

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, "UNAUTHORIZED", appErr.Code)
			assert.Equal(t, "Credenciales inválidas", appErr.Message)
		})
	}
}

/*
TestService_RefreshRotation verifies refresh-token rotation: the old token
dies the moment it is used and the new pair works.
*/
func TestService_RefreshRotation(t *testing.T) {
	fixture := newServiceFixture(t)
	_, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	first, err := fixture.service.Login(context.Background(), auth.LoginInput{
		Email:    "ana@changas.app",
		Password: "secreto123",
	})
	require.NoError(t, err)

	second, err := fixture.service.RefreshSession(context.Background(), first.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replaying the consumed token must fail.
	_, err = fixture.service.RefreshSession(context.Background(), first.RefreshToken, "", "")
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)

	// The rotated token is alive.
	_, err = fixture.service.RefreshSession(context.Background(), second.RefreshToken, "", "")
	require.NoError(t, err)
}

/*
TestService_LogoutIdempotent revokes the session once and tolerates replays.
*/
func TestService_LogoutIdempotent(t *testing.T) {
	fixture := newServiceFixture(t)
	_, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	session, err := fixture.service.Login(context.Background(), auth.LoginInput{
		Email:    "ana@changas.app",
		Password: "secreto123",
	})
	require.NoError(t, err)

	require.NoError(t, fixture.service.Logout(context.Background(), session.RefreshToken))
	require.NoError(t, fixture.service.Logout(context.Background(), session.RefreshToken))
	require.NoError(t, fixture.service.Logout(context.Background(), "never-issued"))

	// A revoked refresh token cannot rotate.
	_, err = fixture.service.RefreshSession(context.Background(), session.RefreshToken, "", "")
	require.Error(t, err)
}

/*
TestService_VerifyEmail flips the verification flag and burns the token.
*/
func TestService_VerifyEmail(t *testing.T) {
	fixture := newServiceFixture(t)

	user, err := fixture.service.Register(context.Background(), registerInput())
	require.NoError(t, err)

	token := "verification-token"
	require.NoError(t, fixture.verification.Set(context.Background(), token, user.ID, auth.VerificationTokenTTL))

	require.NoError(t, fixture.service.VerifyEmail(context.Background(), token))

	fresh, err := fixture.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsVerified)

	// Burned: a replay is rejected.
	err = fixture.service.VerifyEmail(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}
