package models

import "time"

// Message is a stored envelope. The server relays ciphertext and never
// holds plaintext or keys.
type Message struct {
	ID         string
	UserID     string
	DeviceID   string
	Ciphertext string
	IV         string
	SentAt     time.Time
	CreatedAt  time.Time
}
