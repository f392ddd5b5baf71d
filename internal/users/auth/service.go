// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/changas-app/changas/internal/platform/apperr"
	"github.com/changas-app/changas/internal/platform/sec"
	"github.com/changas-app/changas/pkg/slug"
	"github.com/changas-app/changas/pkg/uuidv7"
)

// TokenProvider defines the contract for generating session tokens.
type TokenProvider interface {
	// GenerateSessionToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - email: The email of the account.
	//   - tipoUsuario: The legacy account classifier.
	//   - roles: The account's role markers.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an error if signing fails.
	GenerateSessionToken(userID, email, tipoUsuario string, roles []string, timeToLive time.Duration) (string, error)
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed carefully.
type Service struct {
	userRepository         UserRepository
	sessionRepository      SessionRepository
	verificationRepository VerificationTokenRepository
	tokenProvider          TokenProvider
	logger                 *slog.Logger
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	verificationRepo VerificationTokenRepository,
	tokenProv TokenProvider,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:         userRepo,
		sessionRepository:      sessionRepo,
		verificationRepository: verificationRepo,
		tokenProvider:          tokenProv,
		logger:                 logger,
	}
}

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	TipoUsuario UserType
	Phone       string
	Location    string
}

// Register validates, hashes, and persists a brand new user account.
//
// # Parameters
//   - context: Context for the database operation.
//   - input: The user-provided registration details.
//
// # Returns
//   - A pointer to the newly created [*User].
//   - Returns [apperr.Conflict] if the email already exists.
//
// # Business Rules
//   - Emails must be unique.
//   - Registration NEVER establishes a session: the account starts logged out
//     and the user must go through login explicitly.
//   - The role set starts as exactly the legacy tipo_usuario marker.
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	// ── 1. Uniqueness Checks ──────────────────────────────────────────────

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("El email ya está registrado")
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Entity Construction ────────────────────────────────────────────

	user := &User{
		ID:           uuidv7.New(), // Time-sortable ID to prevent PG index fragmentation.
		Email:        input.Email,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		Slug:         service.uniqueSlug(context, input.DisplayName),
		TipoUsuario:  input.TipoUsuario,
		Roles:        []sec.Role{sec.Role(input.TipoUsuario)},
		IsVerified:   false,
		Phone:        input.Phone,
		Location:     input.Location,
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// ── 5. Email Verification Token ───────────────────────────────────────

	// Token delivery is handled by an external notification pipeline; here we
	// only mint and store it. A storage failure must not fail registration.
	if verifyToken, tokenErr := sec.GenerateSecureToken(VerificationTokenLength); tokenErr == nil {
		if setErr := service.verificationRepository.Set(context, verifyToken, user.ID, VerificationTokenTTL); setErr != nil {
			service.logger.Warn("verification_token_store_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", setErr),
			)
		}
	}

	return user, nil
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	SessionToken          string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

// Login validates user credentials and issues session credentials.
//
// # Parameters
//   - context: Context for the database operation.
//   - input: Contains Email and plain-text Password.
//
// # Returns
//   - A pointer to [LoginSession] containing the session JWT and refresh token.
//   - Returns [apperr.Unauthorized] if credentials do not match.
//
// # Flow
//  1. Lookup user by email.
//  2. Verify password hash using Bcrypt.
//  3. Generate short-lived session JWT.
//  4. Mint and track a long-lived refresh token.
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	// ── 1. Fetch User Profile ─────────────────────────────────────────────

	// Return generic unauthorized error to prevent email enumeration attacks.
	user, err := service.userRepository.FindByEmail(context, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Credenciales inválidas")
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	// Bcrypt comparison is constant-time, preventing timing attacks.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Credenciales inválidas")
	}

	// ── 3. Session Token Issuance ─────────────────────────────────────────

	sessionToken, err := service.tokenProvider.GenerateSessionToken(
		user.ID, user.Email, string(user.TipoUsuario), roleStrings(user.Roles), SessionTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// ── 4. Refresh Token Issuance ─────────────────────────────────────────

	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(RefreshTokenTTL)
	session := &Session{
		ID:        uuidv7.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		SessionToken:          sessionToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// Logout permanently revokes the user's active session.
// This ensures that the tracked refresh token can never be used again.
func (service *Service) Logout(context context.Context, refreshToken string) error {
	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err != nil {
		// If session is already gone or invalid, we consider logout successful (idempotent operation).
		return nil
	}

	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// RefreshSession implements the Refresh Token Rotation mechanism.
// It verifies the existing refresh token, revokes it to prevent reuse (preventing replay attacks),
// and issues a fresh pair of session and refresh tokens.
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {
	// ── 1. Find Existing Session ──────────────────────────────────────────

	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err != nil {
		// The token is either expired, already revoked, or completely invalid.
		return nil, apperr.Unauthorized("Sesión inválida o expirada")
	}

	// ── 2. Rotation (Revoke Old Session) ──────────────────────────────────

	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}

	// ── 3. Find User ──────────────────────────────────────────────────────

	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Usuario no encontrado o suspendido")
	}

	// ── 4. Issue New Tokens ───────────────────────────────────────────────

	sessionToken, err := service.tokenProvider.GenerateSessionToken(
		user.ID, user.Email, string(user.TipoUsuario), roleStrings(user.Roles), SessionTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_session_token_failed: %w", err)
	}

	newRefreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_secure_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(RefreshTokenTTL)
	newSession := &Session{
		ID:        uuidv7.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(newRefreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, newSession); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_session_creation_failed: %w", err)
	}

	return &LoginSession{
		SessionToken:          sessionToken,
		RefreshToken:          newRefreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// VerifyEmail confirms ownership of the account's email address.
//
// It consumes a verification token minted at registration time and flips the
// account's is_verified flag, which marks workers as trustworthy in listings.
func (service *Service) VerifyEmail(context context.Context, token string) error {
	userID, err := service.verificationRepository.Get(context, token)
	if err != nil {
		return apperr.NotFound("Token de verificación")
	}

	if err := service.userRepository.MarkVerified(context, userID); err != nil {
		return fmt.Errorf("auth_service_verify_failed: %w", err)
	}

	// Burn the token so it cannot be replayed.
	if err := service.verificationRepository.Delete(context, token); err != nil {
		service.logger.Warn("verification_token_delete_failed", slog.Any("error", err))
	}

	return nil
}

// uniqueSlug derives a profile slug from the display name, suffixing a short
// UUID fragment when the plain slug is already taken.
func (service *Service) uniqueSlug(context context.Context, displayName string) string {
	base := slug.From(displayName)
	if base == "" {
		base = "usuario"
	}

	if _, err := service.userRepository.FindBySlug(context, base); err != nil {
		return base
	}

	return base + "-" + uuidv7.New()[:8]
}

// roleStrings converts the typed role set into the plain strings embedded in claims.
func roleStrings(roles []sec.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}
