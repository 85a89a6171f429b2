package models

import "time"

// User is an account row. EncryptionSalt is generated once at registration
// and handed to every device so they all derive the same master key; the
// server never sees the key itself.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	EncryptionSalt string
	CreatedAt      time.Time
}
