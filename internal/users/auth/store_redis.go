// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/changas-app/changas/internal/platform/constants"
	"github.com/changas-app/changas/internal/platform/dberr"
)

// # Verification Token Repository (Redis)

// RedisVerificationTokenRepository stores email verification tokens in Redis.
//
// Tokens are volatile by nature (24h TTL) and carry no relational data, so
// Redis with key expiry is a better home for them than Postgres.
type RedisVerificationTokenRepository struct {
	client *redis.Client
}

// NewRedisVerificationTokenRepository constructs the repository over the shared client.
func NewRedisVerificationTokenRepository(client *redis.Client) *RedisVerificationTokenRepository {
	return &RedisVerificationTokenRepository{client: client}
}

func verificationKey(token string) string {
	return constants.RedisPrefixVerifyToken + token
}

func (repository *RedisVerificationTokenRepository) Set(context context.Context, token string, userID string, ttl time.Duration) error {
	if err := repository.client.Set(context, verificationKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_set_failed: %w", err)
	}
	return nil
}

func (repository *RedisVerificationTokenRepository) Get(context context.Context, token string) (string, error) {
	userID, err := repository.client.Get(context, verificationKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", dberr.ErrNotFound
		}
		return "", fmt.Errorf("redis_verify_token_get_failed: %w", err)
	}
	return userID, nil
}

func (repository *RedisVerificationTokenRepository) Delete(context context.Context, token string) error {
	if err := repository.client.Del(context, verificationKey(token)).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_delete_failed: %w", err)
	}
	return nil
}
