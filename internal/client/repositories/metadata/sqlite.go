// Package metadata provides the SQLite key/value store for device-local state.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/dbx"
)

// Well-known metadata keys.
const (
	KeyCheckpoint = "sync_checkpoint"
	KeyUser       = "user"
	KeySalt       = "encryption_salt"
	KeyDeviceID   = "device_id"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the stored value or common.ErrorNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE name=?`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("failed to get metadata %q: %w", name, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, name string, value string) error {
	query := `INSERT INTO metadata (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	if _, err := r.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to set metadata %q: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE name=?`, name); err != nil {
		return fmt.Errorf("failed to delete metadata %q: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}
