package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/antonpetrovs/whisperline/internal/client/api"
	"github.com/antonpetrovs/whisperline/internal/client/backup"
	"github.com/antonpetrovs/whisperline/internal/client/config"
	"github.com/antonpetrovs/whisperline/internal/client/keyring"
	"github.com/antonpetrovs/whisperline/internal/client/models"
	"github.com/antonpetrovs/whisperline/internal/client/pairing"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/metadata"
	"github.com/antonpetrovs/whisperline/internal/client/session"
	"github.com/antonpetrovs/whisperline/internal/client/storage"
	"github.com/antonpetrovs/whisperline/internal/client/syncer"
	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/logging"
)

// App wires the client services behind the REPL commands. Background
// routines (periodic sync, proactive token refresh) run between login and
// logout, bounded by bgCancel.
type App struct {
	config   *config.Config
	repos    *storage.Repositories
	api      *api.HTTPClient
	sessions *session.Manager
	keys     *keyring.Keyring
	engine   *syncer.Engine
	pair     *pairing.Service
	backup   *backup.Service
	log      logging.Logger

	user     *models.User
	deviceID string
	bgCancel context.CancelFunc
	reader   *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	repos, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	deviceID, err := loadOrCreateDeviceID(ctx, repos.Metadata)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(log)
	apiClient := api.NewHTTPClient(c.ServerAddr, deviceID, sessions)
	keys := keyring.New()

	a := &App{
		config:   c,
		repos:    repos,
		api:      apiClient,
		sessions: sessions,
		keys:     keys,
		engine:   syncer.NewEngine(apiClient, repos.Messages, repos.Metadata, keys, deviceID, log),
		pair:     pairing.NewService(apiClient, keys, repos.Metadata, log),
		backup:   backup.NewService(repos.Messages, log),
		log:      log,
		deviceID: deviceID,
		reader:   bufio.NewReader(os.Stdin),
	}

	if err := a.restoreUser(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func loadOrCreateDeviceID(ctx context.Context, meta metadata.Repository) (string, error) {
	id, err := meta.Get(ctx, metadata.KeyDeviceID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}
	id = uuid.NewString()
	if err := meta.Set(ctx, metadata.KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// restoreUser loads the saved account, if any, so the prompt can show who
// the log belongs to. The key stays locked until login or pairing.
func (a *App) restoreUser(ctx context.Context) error {
	v, err := a.repos.Metadata.Get(ctx, metadata.KeyUser)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var u models.User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		return nil
	}
	a.user = &u
	return nil
}

func (a *App) isUnlocked() bool {
	_, ok := a.keys.Get()
	return ok && a.sessions.HasSession()
}

// startBackground launches the periodic sync cycle and the proactive token
// refresh, replacing any previous set of routines.
func (a *App) startBackground(ctx context.Context) {
	a.stopBackground()
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancel = cancel
	go a.engine.Run(bgCtx, a.config.SyncInterval)
	a.sessions.StartProactiveRefresh(bgCtx, a.config.RefreshInterval)
}

func (a *App) stopBackground() {
	if a.bgCancel != nil {
		a.bgCancel()
		a.bgCancel = nil
	}
}

// Run starts the REPL and tears the client down when it returns. Teardown
// order matters: background routines first, then the key, then the session.
func (a *App) Run(ctx context.Context) {
	defer func() {
		a.stopBackground()
		a.keys.Clear()
		a.sessions.Clear()
		_ = a.api.Close()
		_ = a.repos.DB.Close()
	}()
	a.Root(ctx)
}
