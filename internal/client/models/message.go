// Package models defines client-side data models used by the Whisperline CLI.
package models

import "time"

// Message is one entry of the device-local message log.
//
// Ciphertext and IV are base64 strings, meaningful only under the master key
// that was active when they were produced. PlaintextCache is a derived,
// discardable field: it can always be recomputed by decrypting Ciphertext
// with the current master key, and it is empty for rows the key could not
// decrypt.
type Message struct {
	// ID is server-assigned once synced, locally generated otherwise.
	ID string

	// PlaintextCache holds the decrypted body when known.
	PlaintextCache string

	Ciphertext string
	IV         string

	// SentAt is the client-claimed send time in UTC.
	SentAt time.Time

	// DeviceID names the device that produced the message.
	DeviceID string

	// Synced is false until the server acknowledged the entry.
	Synced bool
}

// User is the profile delivered at login or pairing.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	EncryptionSalt string `json:"encryptionSalt"`
}
