package pairingtokens

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

func (r *PostgresRepository) Create(ctx context.Context, token *models.PairingToken) error {

	query :=
		`INSERT INTO pairing_tokens (token, user_id, expires_at)
         VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, token.Token, token.UserID, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume relies on a single DELETE ... RETURNING so single-use and TTL are
// enforced in one statement even under concurrent redemption attempts.
func (r *PostgresRepository) Consume(ctx context.Context, token string, now time.Time) (*models.PairingToken, error) {
	query :=
		`DELETE FROM pairing_tokens
		 WHERE token = $1 AND expires_at > $2
		 RETURNING token, user_id, expires_at, created_at
		 `

	t := &models.PairingToken{}
	err := r.db.QueryRowContext(ctx, query, token, now).Scan(
		&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pairing_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pairing_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
