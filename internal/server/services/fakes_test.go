package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/dbx"
	"github.com/antonpetrovs/whisperline/internal/server/models"
	messagesrepo "github.com/antonpetrovs/whisperline/internal/server/repositories/messages"
	pairingrepo "github.com/antonpetrovs/whisperline/internal/server/repositories/pairingtokens"
	sessionsrepo "github.com/antonpetrovs/whisperline/internal/server/repositories/sessions"
	usersrepo "github.com/antonpetrovs/whisperline/internal/server/repositories/users"
)

// In-memory repository doubles so service logic can be exercised without a
// database.

type memUsers struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*models.User
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}, email: map[string]string{}}
}

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[user.Email]; ok {
		return nil, common.ErrUserAlreadyExists
	}
	m.seq++
	u := *user
	u.ID = fmt.Sprintf("user-%d", m.seq)
	u.CreatedAt = time.Now()
	m.byID[u.ID] = &u
	m.email[u.Email] = u.ID
	return &u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.email[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := *m.byID[id]
	return &u, nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

type memSessions struct {
	mu   sync.Mutex
	byID map[string]*models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[string]*models.Session{}}
}

func (m *memSessions) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *session
	m.byID[s.ID] = &s
	return nil
}

func (m *memSessions) GetByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memSessions) DeleteAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.byID {
		if s.UserID == userID {
			delete(m.byID, id)
		}
	}
	return nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memMessages struct {
	mu   sync.Mutex
	seq  int
	rows []models.Message
}

func newMemMessages() *memMessages {
	return &memMessages{}
}

func (m *memMessages) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *msg
	cp.ID = fmt.Sprintf("msg-%d", m.seq)
	cp.CreatedAt = time.Now()
	m.rows = append(m.rows, cp)
	out := cp
	return &out, nil
}

func (m *memMessages) FindByContent(ctx context.Context, userID, ciphertext, iv string, since, until time.Time) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Message
	for i := range m.rows {
		r := &m.rows[i]
		if r.UserID != userID || r.Ciphertext != ciphertext || r.IV != iv {
			continue
		}
		if r.SentAt.Before(since) || r.SentAt.After(until) {
			continue
		}
		if best == nil || r.SentAt.After(best.SentAt) {
			best = r
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memMessages) FindLatestByDevice(ctx context.Context, userID, deviceID string, since time.Time) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Message
	for i := range m.rows {
		r := &m.rows[i]
		if r.UserID != userID || r.DeviceID != deviceID || r.SentAt.Before(since) {
			continue
		}
		if best == nil || r.SentAt.After(best.SentAt) {
			best = r
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memMessages) ListByUser(ctx context.Context, userID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

type memPairingTokens struct {
	mu      sync.Mutex
	byToken map[string]*models.PairingToken
}

func newMemPairingTokens() *memPairingTokens {
	return &memPairingTokens{byToken: map[string]*models.PairingToken{}}
}

func (m *memPairingTokens) Create(ctx context.Context, token *models.PairingToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := *token
	m.byToken[t.Token] = &t
	return nil
}

func (m *memPairingTokens) Consume(ctx context.Context, token string, now time.Time) (*models.PairingToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byToken[token]
	if !ok || !t.ExpiresAt.After(now) {
		return nil, common.ErrorNotFound
	}
	delete(m.byToken, token)
	cp := *t
	return &cp, nil
}

func (m *memPairingTokens) DeleteForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.byToken {
		if t.UserID == userID {
			delete(m.byToken, k)
		}
	}
	return nil
}

func (m *memPairingTokens) DeleteExpired(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.byToken {
		if !t.ExpiresAt.After(now) {
			delete(m.byToken, k)
		}
	}
	return nil
}

type memManager struct {
	users    *memUsers
	sessions *memSessions
	messages *memMessages
	pairing  *memPairingTokens
}

func newMemManager() *memManager {
	return &memManager{
		users:    newMemUsers(),
		sessions: newMemSessions(),
		messages: newMemMessages(),
		pairing:  newMemPairingTokens(),
	}
}

func (m *memManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *memManager) Users(db dbx.DBTX) usersrepo.Repository { return m.users }

func (m *memManager) Sessions(db dbx.DBTX) sessionsrepo.Repository { return m.sessions }

func (m *memManager) Messages(db dbx.DBTX) messagesrepo.Repository { return m.messages }

func (m *memManager) PairingTokens(db dbx.DBTX) pairingrepo.Repository { return m.pairing }
