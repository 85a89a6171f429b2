package config

import "time"

// Config holds runtime settings for the Whisperline CLI.
//
// Fields:
//   - ServerAddr: base URL of the sync server HTTP API.
//   - DatabasePath: path to the local SQLite database file.
//   - SyncInterval: how often the background sync cycle runs.
//   - RefreshInterval: how often the session token is refreshed proactively.
//
// Units: intervals are time.Durations (e.g., 30*time.Second).
type Config struct {
	ServerAddr      string
	DatabasePath    string
	SyncInterval    time.Duration
	RefreshInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "whisperline.db"
	c.SyncInterval = 30 * time.Second
	c.RefreshInterval = 15 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
