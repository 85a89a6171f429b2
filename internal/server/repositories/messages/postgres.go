package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/dbx"
	"github.com/antonpetrovs/whisperline/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {

	query :=
		`INSERT INTO messages (user_id, device_id, ciphertext, iv, sent_at)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.UserID, m.DeviceID, m.Ciphertext, m.IV, m.SentAt).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) FindByContent(ctx context.Context, userID, ciphertext, iv string, since, until time.Time) (*models.Message, error) {
	query :=
		`SELECT id, user_id, device_id, ciphertext, iv, sent_at, created_at FROM messages
		 WHERE user_id = $1 AND ciphertext = $2 AND iv = $3
		   AND sent_at BETWEEN $4 AND $5
		 ORDER BY sent_at DESC
		 LIMIT 1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, ciphertext, iv, since, until))
}

func (r *PostgresRepository) FindLatestByDevice(ctx context.Context, userID, deviceID string, since time.Time) (*models.Message, error) {
	query :=
		`SELECT id, user_id, device_id, ciphertext, iv, sent_at, created_at FROM messages
		 WHERE user_id = $1 AND device_id = $2 AND sent_at >= $3
		 ORDER BY sent_at DESC
		 LIMIT 1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, deviceID, since))
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Message, error) {
	query :=
		`SELECT id, user_id, device_id, ciphertext, iv, sent_at, created_at FROM messages
		 WHERE user_id = $1
		 ORDER BY sent_at, created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.DeviceID, &m.Ciphertext, &m.IV, &m.SentAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Message, error) {
	m := &models.Message{}
	err := row.Scan(&m.ID, &m.UserID, &m.DeviceID, &m.Ciphertext, &m.IV, &m.SentAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}
