package pairingtokens

import (
	"context"
	"time"

	"github.com/antonpetrovs/whisperline/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.PairingToken) error

	// Consume atomically removes the token and returns it, but only while it
	// is still valid at the given instant. A missing, already used or
	// expired token yields ErrorNotFound.
	Consume(ctx context.Context, token string, now time.Time) (*models.PairingToken, error)

	// DeleteForUser removes every token of the user, expired or not.
	DeleteForUser(ctx context.Context, userID string) error

	DeleteExpired(ctx context.Context, now time.Time) error
}
