// Package syncer drives the offline-first message flow between the local
// store and the server. A cycle pushes every unsynced local entry, then
// pulls the remote history and merges it, deduplicating by id and by
// envelope content. At most one cycle runs at a time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/antonpetrovs/whisperline/internal/client/api"
	"github.com/antonpetrovs/whisperline/internal/client/keyring"
	"github.com/antonpetrovs/whisperline/internal/client/models"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/messages"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/metadata"
	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/cryptox"
	"github.com/antonpetrovs/whisperline/internal/logging"
)

// ErrSyncBusy is returned by Cycle when another cycle is already running.
var ErrSyncBusy = errors.New("sync already in progress")

// wireTime normalizes a timestamp to the millisecond precision used on the
// wire. The server stores microseconds, so a millisecond value round-trips
// unchanged and content dedup matches a message against its own echo.
func wireTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// API is the slice of the server client the engine needs.
type API interface {
	SendMessage(ctx context.Context, req api.SendMessageRequest) (*api.SendMessageResponse, error)
	MessagesSince(ctx context.Context, since time.Time) ([]api.RemoteMessage, error)
}

type Engine struct {
	api      API
	msgs     messages.Repository
	meta     metadata.Repository
	keys     *keyring.Keyring
	deviceID string
	log      logging.Logger

	syncing atomic.Bool
	now     func() time.Time
}

func NewEngine(a API, msgs messages.Repository, meta metadata.Repository,
	keys *keyring.Keyring, deviceID string, log logging.Logger) *Engine {
	return &Engine{
		api:      a,
		msgs:     msgs,
		meta:     meta,
		keys:     keys,
		deviceID: deviceID,
		log:      log,
		now:      time.Now,
	}
}

// Send encrypts text, appends it to the local log and attempts an immediate
// sync cycle. The entry is durable before any network activity happens, so a
// failed or offline cycle leaves it queued for the next one.
func (e *Engine) Send(ctx context.Context, text string) (*models.Message, error) {
	key, ok := e.keys.Get()
	if !ok {
		return nil, fmt.Errorf("send: %w: no encryption key", common.ErrorUnauthorized)
	}

	env, err := cryptox.Encrypt(key, text)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	m := &models.Message{
		ID:             uuid.NewString(),
		PlaintextCache: text,
		Ciphertext:     env.Ciphertext,
		IV:             env.IV,
		SentAt:         wireTime(e.now()),
		DeviceID:       e.deviceID,
		Synced:         false,
	}
	if err := e.msgs.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	if err := e.Cycle(ctx); err != nil && !errors.Is(err, ErrSyncBusy) {
		e.log.Debug(ctx, "deferred sync after send", "error", err)
	}
	return m, nil
}

// Cycle runs one push-then-pull round. Push failures on individual entries
// do not abort the cycle; the pull checkpoint only advances after a clean
// pull so a partial merge is retried in full next time.
func (e *Engine) Cycle(ctx context.Context) error {
	if !e.syncing.CompareAndSwap(false, true) {
		return ErrSyncBusy
	}
	defer e.syncing.Store(false)

	if err := e.push(ctx); err != nil {
		return fmt.Errorf("sync push: %w", err)
	}
	if err := e.pull(ctx); err != nil {
		return fmt.Errorf("sync pull: %w", err)
	}
	return nil
}

// Run executes a cycle every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Cycle(ctx); err != nil && !errors.Is(err, ErrSyncBusy) {
				e.log.Debug(ctx, "periodic sync", "error", err)
			}
		}
	}
}

func (e *Engine) push(ctx context.Context) error {
	pending, err := e.msgs.ListUnsynced(ctx)
	if err != nil {
		return err
	}

	// Entries that fail to push stay unsynced and the loop moves on, so one
	// bad entry never blocks the rest of the queue. A transport or auth
	// failure is still reported after the loop so the pull is skipped.
	var firstErr error
	for i := range pending {
		m := &pending[i]

		// Entries restored from a backup may carry plaintext only.
		if m.Ciphertext == "" {
			key, ok := e.keys.Get()
			if !ok {
				e.log.Warn(ctx, "skipping unencrypted entry, no key available", "id", m.ID)
				continue
			}
			env, err := cryptox.Encrypt(key, m.PlaintextCache)
			if err != nil {
				e.log.Warn(ctx, "encrypting pending entry", "id", m.ID, "error", err)
				continue
			}
			if err := e.msgs.SetEnvelope(ctx, m.ID, env.Ciphertext, env.IV); err != nil {
				return err
			}
			m.Ciphertext, m.IV = env.Ciphertext, env.IV
		}

		resp, err := e.api.SendMessage(ctx, api.SendMessageRequest{
			Ciphertext: m.Ciphertext,
			IV:         m.IV,
			SentAt:     m.SentAt,
		})
		if err != nil {
			if firstErr == nil && (errors.Is(err, api.ErrUnavailable) || errors.Is(err, api.ErrUnauthorized)) {
				firstErr = err
			}
			e.log.Warn(ctx, "pushing entry", "id", m.ID, "error", err)
			continue
		}
		// A duplicate response means the server already holds this entry,
		// which counts as delivered.
		if resp.Duplicate {
			e.log.Debug(ctx, "server reported duplicate", "id", m.ID, "serverID", resp.ID)
		}
		if err := e.msgs.MarkSynced(ctx, m.ID); err != nil {
			return err
		}
	}
	return firstErr
}

func (e *Engine) pull(ctx context.Context) error {
	since, err := e.checkpoint(ctx)
	if err != nil {
		return err
	}
	pullStarted := e.now().UTC()

	remote, err := e.api.MessagesSince(ctx, since)
	if err != nil {
		return err
	}

	key, haveKey := e.keys.Get()

	for _, rm := range remote {
		// Entries this device pushed keep their local id; the server copy
		// is recognized by its exact envelope instead.
		exists, err := e.msgs.ExistsByContent(ctx, rm.Ciphertext, rm.IV, wireTime(rm.SentAt))
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		plaintext := ""
		if haveKey {
			pt, err := cryptox.Decrypt(key, rm.Ciphertext, rm.IV)
			switch {
			case err == nil:
				plaintext = pt
			case errors.Is(err, common.ErrDecryption):
				e.log.Warn(ctx, "undecryptable entry stored without cache", "id", rm.ID)
			default:
				return err
			}
		}

		if err := e.msgs.Append(ctx, &models.Message{
			ID:             rm.ID,
			PlaintextCache: plaintext,
			Ciphertext:     rm.Ciphertext,
			IV:             rm.IV,
			SentAt:         wireTime(rm.SentAt),
			DeviceID:       rm.DeviceID,
			Synced:         true,
		}); err != nil {
			return err
		}
	}

	return e.meta.Set(ctx, metadata.KeyCheckpoint, pullStarted.Format(time.RFC3339Nano))
}

// checkpoint reports the last successful pull time, or the epoch when the
// device has never pulled (or was just paired).
func (e *Engine) checkpoint(ctx context.Context) (time.Time, error) {
	v, err := e.meta.Get(ctx, metadata.KeyCheckpoint)
	if errors.Is(err, common.ErrorNotFound) {
		return time.Unix(0, 0).UTC(), nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Unix(0, 0).UTC(), nil
	}
	return t, nil
}
