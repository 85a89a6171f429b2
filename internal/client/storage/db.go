// Package storage opens the client's local SQLite database and wires the
// device-local repositories on top of it.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/antonpetrovs/whisperline/internal/client/migrations"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/messages"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/metadata"

	_ "modernc.org/sqlite"
)

// Repositories bundles the device-local stores plus the raw handle for
// transactions via dbx.WithTx.
type Repositories struct {
	Messages messages.Repository
	Metadata metadata.Repository
	DB       *sql.DB
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the SQLite database at dsn,
// migrates it, and returns the repository set.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return &Repositories{
		Messages: messages.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
		DB:       db,
	}, nil
}
