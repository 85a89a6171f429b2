package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/server/config"
	"github.com/antonpetrovs/whisperline/internal/server/models"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/repomanager"
)

type MessageService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	contentWindow time.Duration
	deviceWindow  time.Duration
	now           func() time.Time
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *MessageService {
	return &MessageService{
		db:            db,
		repomanager:   m,
		contentWindow: cfg.Sync.ContentDedupWindow,
		deviceWindow:  cfg.Sync.DeviceDedupWindow,
		now:           time.Now,
	}
}

// Save stores an envelope unless it is a retransmission. Two checks run
// before the insert: an identical envelope from the same user inside the
// content window, and any envelope from the same device inside the shorter
// device window. Either match returns the existing row with duplicate=true,
// so at-least-once clients converge on a single copy.
func (s *MessageService) Save(ctx context.Context, userID, deviceID, ciphertext, iv string, sentAt time.Time) (*models.Message, bool, error) {

	repo := s.repomanager.Messages(s.db)

	existing, err := repo.FindByContent(ctx, userID, ciphertext, iv,
		sentAt.Add(-s.contentWindow), sentAt.Add(s.contentWindow))
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, fmt.Errorf("dedup lookup: %w", err)
	}

	if deviceID != "" {
		recent, err := repo.FindLatestByDevice(ctx, userID, deviceID, sentAt.Add(-s.deviceWindow))
		if err == nil && recent.Ciphertext == ciphertext && recent.IV == iv {
			return recent, true, nil
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, false, fmt.Errorf("device dedup lookup: %w", err)
		}
	}

	m, err := repo.Create(ctx, &models.Message{
		UserID:     userID,
		DeviceID:   deviceID,
		Ciphertext: ciphertext,
		IV:         iv,
		SentAt:     sentAt.UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("saving message: %w", err)
	}
	return m, false, nil
}

// History returns the user's complete message log. The since parameter from
// the sync endpoint is accepted but not applied: devices restored from a
// backup or paired later need the entries older than their checkpoint, and
// they deduplicate locally anyway.
func (s *MessageService) History(ctx context.Context, userID string, since time.Time) ([]models.Message, error) {
	_ = since

	repo := s.repomanager.Messages(s.db)
	list, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return list, nil
}
