// Package server wires the sync server together: configuration, Postgres
// storage with embedded migrations, the service layer and the HTTP API,
// plus graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/antonpetrovs/whisperline/internal/logging"
	"github.com/antonpetrovs/whisperline/internal/server/config"
	"github.com/antonpetrovs/whisperline/internal/server/httpapi"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/repomanager"
	"github.com/antonpetrovs/whisperline/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	handler := tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo})
	logger := logging.NewSlogLogger(slog.New(handler))

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	userService := services.NewUserService(db, rm, cfg)
	messageService := services.NewMessageService(db, rm, cfg)
	pairingService := services.NewPairingService(db, rm, cfg)

	h := httpapi.NewHandler(userService, messageService, pairingService,
		cfg.Auth.RefreshTokenTTL, logger)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      h.Routes(cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.HTTP.Addr)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "http server", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown", "error", err)
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
	app.logger.Info(ctx, "server stopped")
}
