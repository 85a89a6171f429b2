// Package messages provides the SQLite-backed device-local message log.
package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/antonpetrovs/whisperline/internal/client/models"
	"github.com/antonpetrovs/whisperline/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts a message, ignoring conflicts on id. Rowid preserves
// insertion order for ListUnsynced and for sentAt tiebreaks. sent_at is
// stored at millisecond precision, the wire precision, so content lookups
// match regardless of which side a timestamp came from.
func (r *SQLiteRepository) Append(ctx context.Context, m *models.Message) error {
	query := `INSERT INTO messages (id, plaintext_cache, ciphertext, iv, sent_at, device_id, synced)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.PlaintextCache, m.Ciphertext, m.IV, m.SentAt.UTC().Truncate(time.Millisecond), m.DeviceID, m.Synced)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	query := `UPDATE messages SET synced=1 WHERE id=?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark message synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetEnvelope(ctx context.Context, id, ciphertext, iv string) error {
	query := `UPDATE messages SET ciphertext=?, iv=? WHERE id=?`
	if _, err := r.db.ExecContext(ctx, query, ciphertext, iv, id); err != nil {
		return fmt.Errorf("failed to set message envelope: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]models.Message, error) {
	query := `SELECT id, plaintext_cache, ciphertext, iv, sent_at, device_id, synced
			FROM messages WHERE synced=0 ORDER BY rowid`
	return r.list(ctx, query)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.Message, error) {
	query := `SELECT id, plaintext_cache, ciphertext, iv, sent_at, device_id, synced
			FROM messages ORDER BY sent_at, rowid`
	return r.list(ctx, query)
}

func (r *SQLiteRepository) list(ctx context.Context, query string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.PlaintextCache, &m.Ciphertext, &m.IV, &m.SentAt, &m.DeviceID, &m.Synced); err != nil {
			return nil, err
		}
		m.SentAt = m.SentAt.UTC()
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ExistsByContent(ctx context.Context, ciphertext, iv string, sentAt time.Time) (bool, error) {
	query := `SELECT count(*) FROM messages WHERE ciphertext=? AND iv=? AND sent_at=?`
	var n int
	if err := r.db.QueryRowContext(ctx, query, ciphertext, iv, sentAt.UTC().Truncate(time.Millisecond)).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check message content: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}
