// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/changas-app/changas/internal/platform/dberr"
	"github.com/changas-app/changas/internal/platform/sec"
)

// # User Repository (PostgreSQL)

// PostgresUserRepository is the pgx-backed implementation of [UserRepository].
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository constructs a user repository over the shared pool.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `
	id, email, password_hash, display_name, slug, tipo_usuario, roles,
	is_verified, phone, location, avatar_url, cover_url, created_at, updated_at`

// scanUser hydrates a [User] from a single-row query.
func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var user User
	var roles []string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Slug,
		&user.TipoUsuario,
		&roles,
		&user.IsVerified,
		&user.Phone,
		&user.Location,
		&user.AvatarURL,
		&user.CoverURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err)
	}

	user.Roles = toRoles(roles)
	return &user, nil
}

func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := `SELECT` + userColumns + ` FROM users.account WHERE id = $1`
	return scanUser(repository.pool.QueryRow(context, query, id))
}

func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := `SELECT` + userColumns + ` FROM users.account WHERE lower(email) = lower($1)`
	return scanUser(repository.pool.QueryRow(context, query, email))
}

func (repository *PostgresUserRepository) FindBySlug(context context.Context, slug string) (*User, error) {
	query := `SELECT` + userColumns + ` FROM users.account WHERE slug = $1`
	return scanUser(repository.pool.QueryRow(context, query, slug))
}

func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := `
		INSERT INTO users.account (
			id, email, password_hash, display_name, slug, tipo_usuario, roles,
			is_verified, phone, location, avatar_url, cover_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := repository.pool.QueryRow(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Slug,
		user.TipoUsuario,
		fromRoles(user.Roles),
		user.IsVerified,
		user.Phone,
		user.Location,
		user.AvatarURL,
		user.CoverURL,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	return dberr.Wrap(err)
}

func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	query := `
		UPDATE users.account
		SET display_name = $2,
		    phone        = $3,
		    location     = $4,
		    avatar_url   = $5,
		    cover_url    = $6,
		    updated_at   = now()
		WHERE id = $1
		RETURNING updated_at`

	err := repository.pool.QueryRow(context, query,
		user.ID,
		user.DisplayName,
		user.Phone,
		user.Location,
		user.AvatarURL,
		user.CoverURL,
	).Scan(&user.UpdatedAt)

	return dberr.Wrap(err)
}

func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	query := `UPDATE users.account SET is_verified = true, updated_at = now() WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return dberr.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// # Session Repository (PostgreSQL)

// PostgresSessionRepository is the pgx-backed implementation of [SessionRepository].
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository constructs a session repository over the shared pool.
func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	query := `
		INSERT INTO users.session (id, user_id, token_hash, user_agent, ip_address, expires_at, is_revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := repository.pool.QueryRow(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.IsRevoked,
	).Scan(&session.CreatedAt)

	return dberr.Wrap(err)
}

func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	// Revoked and expired sessions are filtered here so callers can treat any
	// miss uniformly as an invalid token.
	query := `
		SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, is_revoked, created_at
		FROM users.session
		WHERE token_hash = $1
		  AND is_revoked = false
		  AND expires_at > now()`

	var session Session
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err)
	}

	return &session, nil
}

func (repository *PostgresSessionRepository) Revoke(context context.Context, sessionID string) error {
	query := `UPDATE users.session SET is_revoked = true WHERE id = $1`
	_, err := repository.pool.Exec(context, query, sessionID)
	return dberr.Wrap(err)
}

func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) error {
	query := `UPDATE users.session SET is_revoked = true WHERE user_id = $1 AND is_revoked = false`
	_, err := repository.pool.Exec(context, query, userID)
	return dberr.Wrap(err)
}

func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) error {
	query := `DELETE FROM users.session WHERE expires_at < now() - interval '7 days'`
	_, err := repository.pool.Exec(context, query)
	return dberr.Wrap(err)
}

// # Role Mapping Helpers

func toRoles(values []string) []sec.Role {
	out := make([]sec.Role, 0, len(values))
	for _, value := range values {
		out = append(out, sec.Role(value))
	}
	return out
}

func fromRoles(roles []sec.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}
