package main

import (
	"context"
	"flag"
	"log"

	"github.com/antonpetrovs/whisperline/internal/server"
	"github.com/antonpetrovs/whisperline/internal/server/config"
)

func main() {

	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
