// Package api is the HTTP client for the Whisperline server. It owns the
// JSON wire types of the remote contract and maps transport failures onto
// the client's error taxonomy.
package api

import (
	"context"
	"time"

	"github.com/antonpetrovs/whisperline/internal/client/models"
)

// AuthResponse is the payload of login, register, and pairing redemption.
type AuthResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         models.User `json:"user"`
}

// SendMessageRequest is the body of POST /messages/send.
type SendMessageRequest struct {
	Ciphertext string    `json:"ciphertext"`
	IV         string    `json:"iv"`
	SentAt     time.Time `json:"sentAt"`
}

// SendMessageResponse acknowledges a stored (or deduplicated) message.
type SendMessageResponse struct {
	ID        string    `json:"id"`
	SentAt    time.Time `json:"sentAt"`
	Duplicate bool      `json:"duplicate,omitempty"`
}

// RemoteMessage is one row of GET /messages/since.
type RemoteMessage struct {
	ID         string    `json:"id"`
	Ciphertext string    `json:"ciphertext"`
	IV         string    `json:"iv"`
	SentAt     time.Time `json:"sentAt"`
	DeviceID   string    `json:"deviceId"`
}

// Client is the remote API surface consumed by the sync engine, the session
// manager, and the pairing protocol.
type Client interface {
	Register(ctx context.Context, email, password string) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context) error

	SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error)
	MessagesSince(ctx context.Context, since time.Time) ([]RemoteMessage, error)

	PairInit(ctx context.Context) (string, error)
	PairRedeem(ctx context.Context, token, masterKeyB64 string) (*AuthResponse, error)

	Close() error
}
