// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package auth

import "time"

// # Authentication Constraints

const (
	// SessionTokenTTL is the duration a session JWT remains valid.
	// We keep it short (15m) to minimize the impact of a leaked cookie.
	SessionTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a refresh-token session remains valid.
	// Long-lived (30 days) to provide a good user experience.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random secure token.
	RefreshTokenLength = 32

	// VerificationTokenTTL is the duration an email verification token remains valid.
	// Long-lived (24 hours) as users might not check email immediately.
	VerificationTokenTTL = 24 * time.Hour

	// VerificationTokenLength is the byte length of the random verification token.
	VerificationTokenLength = 32
)
