// Package session holds the device's access/refresh credential pair and the
// two token-refresh paths: the reactive one (a 401 triggers exactly one
// refresh-and-retry) and the proactive timer that renews the access token
// ahead of expiry.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antonpetrovs/whisperline/internal/logging"
)

// RefreshFunc exchanges a refresh token for a fresh access token.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, error)

// Manager is a concurrency-safe holder for the session credentials.
//
// Both refresh paths may race each other; refreshing twice in quick
// succession is harmless because the server-side session record stays valid,
// so no coordination beyond the mutex is needed.
type Manager struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refresh      RefreshFunc
	log          logging.Logger
}

func NewManager(log logging.Logger) *Manager {
	return &Manager{log: log}
}

// SetRefreshFunc wires the API call used by both refresh paths. Must be set
// before Refresh or StartProactiveRefresh is used.
func (m *Manager) SetRefreshFunc(fn RefreshFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh = fn
}

// SetTokens installs a credential pair after login or pairing redemption.
func (m *Manager) SetTokens(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = access
	m.refreshToken = refresh
}

func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken
}

// HasSession reports whether a credential pair is installed.
func (m *Manager) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken != ""
}

// Clear drops the credentials (logout).
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessToken = ""
	m.refreshToken = ""
}

// Refresh performs one refresh call and installs the new access token.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	fn := m.refresh
	token := m.refreshToken
	m.mu.Unlock()

	if fn == nil {
		return fmt.Errorf("session: no refresh func configured")
	}
	if token == "" {
		return fmt.Errorf("session: no refresh token")
	}

	access, err := fn(ctx, token)
	if err != nil {
		return fmt.Errorf("session refresh: %w", err)
	}

	m.mu.Lock()
	m.accessToken = access
	m.mu.Unlock()
	return nil
}

// StartProactiveRefresh renews the access token on a timer until ctx is
// cancelled. It runs independently of the reactive 401 path; failures are
// logged and retried on the next tick.
func (m *Manager) StartProactiveRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !m.HasSession() {
					continue
				}
				if err := m.Refresh(ctx); err != nil {
					m.log.Warn(ctx, "proactive token refresh failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
