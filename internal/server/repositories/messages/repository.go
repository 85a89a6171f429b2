package messages

import (
	"context"
	"time"

	"github.com/antonpetrovs/whisperline/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)

	// FindByContent returns the newest message of the user with the same
	// envelope whose sent_at lies in [since, until], or ErrorNotFound.
	FindByContent(ctx context.Context, userID, ciphertext, iv string, since, until time.Time) (*models.Message, error)

	// FindLatestByDevice returns the newest message the device stored at or
	// after since, or ErrorNotFound.
	FindLatestByDevice(ctx context.Context, userID, deviceID string, since time.Time) (*models.Message, error)

	// ListByUser returns the user's full message history ordered by sent_at.
	ListByUser(ctx context.Context, userID string) ([]models.Message, error)
}
