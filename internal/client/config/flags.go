package config

import (
	"flag"
	"os"
	"time"

	"github.com/antonpetrovs/whisperline/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the sync server (default from Config)
//	-d string   path to the local database file (default from Config)
//	-s int      background sync interval in seconds (default from Config)
//	-r int      proactive token refresh interval in seconds (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "base URL of the sync server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database file")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "background sync interval (in seconds)")
	refreshInterval := fs.Int("r", int(cfg.RefreshInterval.Seconds()), "token refresh interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.RefreshInterval = time.Duration(*refreshInterval) * time.Second
}
