package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/antonpetrovs/whisperline/internal/client/cli"
	"github.com/antonpetrovs/whisperline/internal/client/config"
	"github.com/antonpetrovs/whisperline/internal/logging"
)

func main() {

	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
