// Package backup serializes the local message log to a portable JSON
// document and merges such documents back in. Envelopes stay encrypted in
// the export; the plaintext cache is never written out.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/antonpetrovs/whisperline/internal/client/models"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/messages"
	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/logging"
)

const encryptionType = "aes-cbc-pbkdf2"

type Entry struct {
	ID         string    `json:"id"`
	Ciphertext string    `json:"ciphertext"`
	IV         string    `json:"iv"`
	SentAt     time.Time `json:"sentAt"`
	DeviceID   string    `json:"deviceId"`
	Synced     bool      `json:"synced"`
}

type Meta struct {
	MessageCount   int    `json:"messageCount"`
	EncryptionType string `json:"encryptionType"`
	Note           string `json:"note,omitempty"`
}

type Document struct {
	ExportedAt time.Time `json:"exportedAt"`
	Messages   []Entry   `json:"messages"`
	Metadata   Meta      `json:"metadata"`
}

type Service struct {
	msgs messages.Repository
	log  logging.Logger
	now  func() time.Time
}

func NewService(msgs messages.Repository, log logging.Logger) *Service {
	return &Service{msgs: msgs, log: log, now: time.Now}
}

// Export writes the full log as a JSON document.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	all, err := s.msgs.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("backup export: %w", err)
	}

	doc := Document{
		ExportedAt: s.now().UTC(),
		Messages:   make([]Entry, 0, len(all)),
		Metadata: Meta{
			MessageCount:   len(all),
			EncryptionType: encryptionType,
		},
	}
	for _, m := range all {
		doc.Messages = append(doc.Messages, Entry{
			ID:         m.ID,
			Ciphertext: m.Ciphertext,
			IV:         m.IV,
			SentAt:     m.SentAt.UTC(),
			DeviceID:   m.DeviceID,
			Synced:     m.Synced,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("backup export: %w", err)
	}
	return nil
}

// Import merges a backup document into the local log. Entries already
// present, by id or by exact envelope, are skipped; new ones are appended
// unsynced so the next cycle pushes them. A malformed document fails before
// anything is written.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("backup import: malformed document: %w", common.ErrValidation)
	}
	for i, e := range doc.Messages {
		if e.ID == "" {
			return 0, fmt.Errorf("backup import: entry %d has no id: %w", i, common.ErrValidation)
		}
		if e.Ciphertext == "" || e.IV == "" {
			return 0, fmt.Errorf("backup import: entry %s has no envelope: %w", e.ID, common.ErrValidation)
		}
	}

	before, err := s.msgs.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("backup import: %w", err)
	}

	for _, e := range doc.Messages {
		exists, err := s.msgs.ExistsByContent(ctx, e.Ciphertext, e.IV, e.SentAt)
		if err != nil {
			return 0, fmt.Errorf("backup import: %w", err)
		}
		if exists {
			continue
		}
		// Append is a no-op when the id is already taken.
		if err := s.msgs.Append(ctx, &models.Message{
			ID:         e.ID,
			Ciphertext: e.Ciphertext,
			IV:         e.IV,
			SentAt:     e.SentAt.UTC(),
			DeviceID:   e.DeviceID,
			Synced:     false,
		}); err != nil {
			return 0, fmt.Errorf("backup import: %w", err)
		}
	}

	after, err := s.msgs.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("backup import: %w", err)
	}
	imported := after - before

	s.log.Info(ctx, "backup imported", "entries", imported, "skipped", len(doc.Messages)-imported)
	return imported, nil
}
