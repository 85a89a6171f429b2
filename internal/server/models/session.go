package models

import "time"

// Session backs one refresh token. Only the SHA-256 hash of the token is
// stored; the token itself lives on the client.
type Session struct {
	ID               string
	UserID           string
	DeviceID         string
	RefreshTokenHash string
	ExpiresAt        time.Time
	CreatedAt        time.Time
}
