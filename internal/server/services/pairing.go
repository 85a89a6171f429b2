package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/dbx"
	"github.com/antonpetrovs/whisperline/internal/server/config"
	"github.com/antonpetrovs/whisperline/internal/server/models"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/repomanager"
)

const pairingTokenBytes = 32

type PairingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         func() time.Time
}

func NewPairingService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *PairingService {
	return &PairingService{
		db:          db,
		repomanager: m,
		ttl:         cfg.Auth.PairingTokenTTL,
		now:         time.Now,
	}
}

// Init mints a single-use pairing token for the user, replacing any token
// the user already holds. Expired leftovers of other users are swept
// opportunistically on each mint.
func (s *PairingService) Init(ctx context.Context, userID string) (string, error) {

	token, err := common.MakeRandHexString(pairingTokenBytes)
	if err != nil {
		return "", common.ErrorInternal
	}

	// Replacement runs in one transaction so at most one live token per
	// user exists even when two mints race.
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.PairingTokens(tx)
		if err := repo.DeleteForUser(ctx, userID); err != nil {
			return err
		}
		_ = repo.DeleteExpired(ctx, s.now())
		return repo.Create(ctx, &models.PairingToken{
			Token:     token,
			UserID:    userID,
			ExpiresAt: s.now().Add(s.ttl),
		})
	})
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// Redeem consumes the token and returns the account it belongs to. A token
// that is unknown, already used or past its TTL fails with ErrPairingToken.
func (s *PairingService) Redeem(ctx context.Context, token string) (string, error) {

	repo := s.repomanager.PairingTokens(s.db)

	t, err := repo.Consume(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrPairingToken
		}
		return "", common.ErrorInternal
	}
	return t.UserID, nil
}
