package backup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/antonpetrovs/whisperline/internal/client/models"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/messages"
	"github.com/antonpetrovs/whisperline/internal/client/storage"
	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/logging"
)

func setup(t *testing.T) (*Service, messages.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(context.Background(), db))

	repo := messages.NewSQLiteRepository(db)
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	return NewService(repo, log), repo
}

func seed(t *testing.T, repo messages.Repository, id, ct, iv string) {
	t.Helper()
	require.NoError(t, repo.Append(context.Background(), &models.Message{
		ID:             id,
		PlaintextCache: "secret " + id,
		Ciphertext:     ct,
		IV:             iv,
		SentAt:         time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		DeviceID:       "dev-1",
		Synced:         true,
	}))
}

func TestExport_OmitsPlaintext(t *testing.T) {
	svc, repo := setup(t)
	seed(t, repo, "m1", "ct1", "iv1")
	seed(t, repo, "m2", "ct2", "iv2")

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf))

	assert.NotContains(t, buf.String(), "secret m1")

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.Messages, 2)
	assert.Equal(t, 2, doc.Metadata.MessageCount)
	assert.Equal(t, "aes-cbc-pbkdf2", doc.Metadata.EncryptionType)
	assert.False(t, doc.ExportedAt.IsZero())
}

func TestImport_RoundTrip(t *testing.T) {
	src, srcRepo := setup(t)
	seed(t, srcRepo, "m1", "ct1", "iv1")

	var buf bytes.Buffer
	require.NoError(t, src.Export(context.Background(), &buf))

	dst, dstRepo := setup(t)
	n, err := dst.Import(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := dstRepo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "m1", all[0].ID)
	assert.False(t, all[0].Synced, "imported entries queue for push")
	assert.Empty(t, all[0].PlaintextCache)
}

func TestImport_SkipsExisting(t *testing.T) {
	svc, repo := setup(t)
	seed(t, repo, "m1", "ct1", "iv1")

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf))

	n, err := svc.Import(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImport_MalformedFailsBeforeMutation(t *testing.T) {
	svc, repo := setup(t)

	_, err := svc.Import(context.Background(), strings.NewReader("{not json"))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Import(context.Background(), strings.NewReader(
		`{"messages":[{"id":"ok","ciphertext":"c","iv":"i"},{"id":"","ciphertext":"c2","iv":"i2"}]}`))
	assert.ErrorIs(t, err, common.ErrValidation)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "failed import must not write anything")
}

func TestImport_MissingEnvelopeRejected(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Import(context.Background(), strings.NewReader(
		`{"messages":[{"id":"m1","ciphertext":"","iv":""}]}`))
	assert.ErrorIs(t, err, common.ErrValidation)
}
