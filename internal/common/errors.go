// Package common defines shared constants and sentinel errors used across
// client and server layers of Whisperline. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Crypto errors. ErrDecryption is the expected outcome of decrypting
	// with a wrong key and must be recovered, not propagated as a crash.
	ErrKeyDerivation = errors.New("key derivation failed")
	ErrDecryption    = errors.New("decryption failed")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrSessionExpired      = errors.New("session expired")

	// Pairing errors: the one-time device-linking token was expired,
	// already consumed, or never issued.
	ErrPairingToken = errors.New("pairing token invalid or expired")

	// Validation errors (malformed QR payload, malformed backup file).
	// Rejected before any local-state mutation.
	ErrValidation = errors.New("validation error")

	ErrUserAlreadyExists = errors.New("user already exists")
)
