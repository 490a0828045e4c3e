package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

// DefaultConfigPath is read when no --config flag is given. A missing file is
// not an error.
const DefaultConfigPath = "wellness.yaml"

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"addr": ":5000",
		},
		"mongo": map[string]interface{}{
			"uri":             "",
			"database":        "wellness",
			"collection":      "reminders",
			"connect_timeout": "10s",
		},
		"storage": map[string]interface{}{
			"fallback":    FallbackFile,
			"file_path":   "data/reminders.json",
			"sqlite_path": "data/reminders.db",
		},
		"scheduler": map[string]interface{}{
			"enabled":       true,
			"poll_interval": "30s",
			"lookahead":     "5m",
		},
		"timezone": "Local",
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
