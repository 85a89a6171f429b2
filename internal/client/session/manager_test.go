package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonpetrovs/whisperline/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestSetAndClearTokens(t *testing.T) {
	m := NewManager(testLogger())
	assert.False(t, m.HasSession())

	m.SetTokens("access", "refresh")
	assert.True(t, m.HasSession())
	assert.Equal(t, "access", m.AccessToken())
	assert.Equal(t, "refresh", m.RefreshToken())

	m.Clear()
	assert.False(t, m.HasSession())
	assert.Empty(t, m.AccessToken())
}

func TestRefresh_InstallsNewAccessToken(t *testing.T) {
	m := NewManager(testLogger())
	m.SetTokens("old-access", "refresh-1")
	m.SetRefreshFunc(func(ctx context.Context, refreshToken string) (string, error) {
		assert.Equal(t, "refresh-1", refreshToken)
		return "new-access", nil
	})

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, "new-access", m.AccessToken())
	assert.Equal(t, "refresh-1", m.RefreshToken())
}

func TestRefresh_ErrorPropagates(t *testing.T) {
	m := NewManager(testLogger())
	m.SetTokens("a", "r")
	boom := errors.New("boom")
	m.SetRefreshFunc(func(ctx context.Context, refreshToken string) (string, error) {
		return "", boom
	})

	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "a", m.AccessToken())
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	m := NewManager(testLogger())
	m.SetRefreshFunc(func(ctx context.Context, refreshToken string) (string, error) {
		t.Fatal("must not be called")
		return "", nil
	})
	assert.Error(t, m.Refresh(context.Background()))
}

func TestRefresh_ConcurrentCallsAreHarmless(t *testing.T) {
	m := NewManager(testLogger())
	m.SetTokens("a", "r")

	var calls atomic.Int32
	m.SetRefreshFunc(func(ctx context.Context, refreshToken string) (string, error) {
		calls.Add(1)
		return "fresh", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Refresh(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, "fresh", m.AccessToken())
	assert.Equal(t, int32(10), calls.Load())
}
