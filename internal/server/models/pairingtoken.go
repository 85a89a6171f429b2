package models

import "time"

// PairingToken is a short-lived single-use credential minted by an
// authenticated device so a new device can join the account.
type PairingToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
