package messages

import (
	"context"
	"time"

	"github.com/antonpetrovs/whisperline/internal/client/models"
)

// Repository is the device-local ordered message log. Two devices never
// share an instance; they converge only through the sync engine and the
// remote API.
type Repository interface {
	// Append inserts a message. It is idempotent by id: appending a
	// message whose id already exists is a no-op.
	Append(ctx context.Context, m *models.Message) error

	// MarkSynced flips the synced flag; no-op if the id is absent.
	MarkSynced(ctx context.Context, id string) error

	// SetEnvelope fills in ciphertext/iv for an entry that was stored as
	// plaintext only (lazy encryption during push).
	SetEnvelope(ctx context.Context, id, ciphertext, iv string) error

	// ListUnsynced returns all messages with synced=false in insertion order.
	ListUnsynced(ctx context.Context) ([]models.Message, error)

	// ListAll returns every message ordered by sentAt ascending, with
	// insertion order breaking ties.
	ListAll(ctx context.Context) ([]models.Message, error)

	// ExistsByContent reports whether a message with exactly this
	// (ciphertext, iv, sentAt) is already present.
	ExistsByContent(ctx context.Context, ciphertext, iv string, sentAt time.Time) (bool, error)

	// Count returns the number of stored messages.
	Count(ctx context.Context) (int, error)

	// Clear wipes the log (logout).
	Clear(ctx context.Context) error
}
