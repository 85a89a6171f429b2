// Package pairing links a new device to an existing account without
// re-entering the password. The established device asks the server for a
// short-lived single-use token and shows it, together with the master key
// and server address, as a QR payload. The new device parses the payload,
// redeems the token for a session and adopts the key.
package pairing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/antonpetrovs/whisperline/internal/client/api"
	"github.com/antonpetrovs/whisperline/internal/client/keyring"
	"github.com/antonpetrovs/whisperline/internal/client/models"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/metadata"
	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/cryptox"
	"github.com/antonpetrovs/whisperline/internal/logging"
)

const payloadScheme = "whisperline"

// Format tells which shape the scanned payload had.
type Format int

const (
	FormatURI Format = iota
	FormatJSON
	FormatRaw
)

// Payload is the content of a pairing QR code. MasterKey is the base64
// encoded key; Server may be empty when the payload is a bare token.
type Payload struct {
	Token     string `json:"token"`
	MasterKey string `json:"master"`
	Server    string `json:"server,omitempty"`
}

// BuildURI renders the payload in the canonical QR form,
// whisperline://pair?token=...&master=...&server=...
func BuildURI(p Payload) string {
	q := url.Values{}
	q.Set("token", p.Token)
	q.Set("master", p.MasterKey)
	if p.Server != "" {
		q.Set("server", p.Server)
	}
	return payloadScheme + "://pair?" + q.Encode()
}

// Parse accepts the three payload shapes a scanner may produce: the
// canonical URI, a JSON object, or a raw token string. A raw token carries
// no key, so redeeming it later fails validation before any network call.
func Parse(s string) (Payload, Format, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Payload{}, FormatRaw, fmt.Errorf("empty pairing payload: %w", common.ErrValidation)
	}

	if strings.HasPrefix(s, payloadScheme+"://") {
		u, err := url.Parse(s)
		if err != nil {
			return Payload{}, FormatURI, fmt.Errorf("malformed pairing uri: %w", common.ErrValidation)
		}
		p := Payload{
			Token:     u.Query().Get("token"),
			MasterKey: u.Query().Get("master"),
			Server:    u.Query().Get("server"),
		}
		if p.Token == "" {
			return Payload{}, FormatURI, fmt.Errorf("pairing uri without token: %w", common.ErrValidation)
		}
		return p, FormatURI, nil
	}

	if strings.HasPrefix(s, "{") {
		var raw struct {
			Token  string `json:"token"`
			Master string `json:"master"`
			MK     string `json:"mk"`
			Server string `json:"server"`
		}
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return Payload{}, FormatJSON, fmt.Errorf("malformed pairing json: %w", common.ErrValidation)
		}
		p := Payload{Token: raw.Token, MasterKey: raw.Master, Server: raw.Server}
		if p.MasterKey == "" {
			p.MasterKey = raw.MK
		}
		if p.Token == "" {
			return Payload{}, FormatJSON, fmt.Errorf("pairing json without token: %w", common.ErrValidation)
		}
		return p, FormatJSON, nil
	}

	return Payload{Token: s}, FormatRaw, nil
}

// Service runs both sides of the handshake for this device.
type Service struct {
	api  api.Client
	keys *keyring.Keyring
	meta metadata.Repository
	log  logging.Logger
}

func NewService(a api.Client, keys *keyring.Keyring, meta metadata.Repository, log logging.Logger) *Service {
	return &Service{api: a, keys: keys, meta: meta, log: log}
}

// Initiate is the established-device side: it requests a fresh token and
// returns the payload to display. The caller must hold a session and an
// unlocked key.
func (s *Service) Initiate(ctx context.Context, serverAddr string) (Payload, error) {
	key, ok := s.keys.Get()
	if !ok {
		return Payload{}, fmt.Errorf("pairing: %w: key is locked", common.ErrorUnauthorized)
	}

	token, err := s.api.PairInit(ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("pairing init: %w", err)
	}

	return Payload{
		Token:     token,
		MasterKey: cryptox.EncodeKey(key),
		Server:    serverAddr,
	}, nil
}

// Redeem is the new-device side: it validates the scanned payload, trades
// the token for a session, adopts the master key and resets the sync
// checkpoint so the next pull replays the full history.
func (s *Service) Redeem(ctx context.Context, p Payload) (*models.User, error) {
	if p.Token == "" || p.MasterKey == "" {
		return nil, fmt.Errorf("pairing payload incomplete: %w", common.ErrValidation)
	}
	key, err := cryptox.DecodeKey(p.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("pairing key: %w", err)
	}

	resp, err := s.api.PairRedeem(ctx, p.Token, p.MasterKey)
	if err != nil {
		return nil, err
	}

	s.keys.Set(key)
	common.WipeByteArray(key)

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return nil, err
	}
	if err := s.meta.Set(ctx, metadata.KeyUser, string(userJSON)); err != nil {
		return nil, err
	}
	if err := s.meta.Set(ctx, metadata.KeySalt, resp.User.EncryptionSalt); err != nil {
		return nil, err
	}
	epoch := time.Unix(0, 0).UTC().Format(time.RFC3339Nano)
	if err := s.meta.Set(ctx, metadata.KeyCheckpoint, epoch); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "device paired", "user", resp.User.Email)
	return &resp.User, nil
}
