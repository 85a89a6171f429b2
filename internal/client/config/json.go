package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/antonpetrovs/whisperline/internal/flagx"
	"github.com/antonpetrovs/whisperline/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds.
type JsonConfig struct {
	ServerAddr      string         `json:"server_addr"`
	DatabasePath    string         `json:"database_path"`
	SyncInterval    timex.Duration `json:"sync_interval"`
	RefreshInterval timex.Duration `json:"refresh_interval"`
}

// parseJson overlays cfg with values loaded from a JSON file. The file path
// comes from the -c or -config flag; when neither is given nothing is loaded.
// Read or unmarshal errors panic, matching startup-time config handling.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerAddr != "" {
		cfg.ServerAddr = jc.ServerAddr
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.RefreshInterval.Duration != 0 {
		cfg.RefreshInterval = time.Duration(jc.RefreshInterval.Duration)
	}
}
