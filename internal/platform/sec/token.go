// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a URL-safe random token of byteLength entropy bytes.
//
// It is used for opaque refresh tokens and email verification tokens. The raw
// value is handed to the client; only its hash is ever persisted.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Refresh tokens are stored hashed so a database leak does not expose live
// session credentials. SHA-256 (not bcrypt) is sufficient because the input
// already carries full random entropy.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
