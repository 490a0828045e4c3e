package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Empty(t, cfg.Mongo.URI)
	assert.Equal(t, "wellness", cfg.Mongo.Database)
	assert.Equal(t, "reminders", cfg.Mongo.Collection)
	assert.Equal(t, 10*time.Second, cfg.Mongo.ConnectTimeout)
	assert.Equal(t, FallbackFile, cfg.Storage.Fallback)
	assert.Equal(t, "data/reminders.json", cfg.Storage.FilePath)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Lookahead)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wellness.yaml")
	yaml := `
server:
  addr: 127.0.0.1:8080
storage:
  fallback: sqlite
  sqlite_path: /tmp/wellness.db
scheduler:
  poll_interval: 1m
timezone: Europe/Rome
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, FallbackSQLite, cfg.Storage.Fallback)
	assert.Equal(t, "/tmp/wellness.db", cfg.Storage.SQLitePath)
	assert.Equal(t, time.Minute, cfg.Scheduler.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Lookahead, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Rome", loc.String())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Server.Addr)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("WELLNESS_MONGO__URI", "mongodb://db:27017")
	t.Setenv("WELLNESS_STORAGE__FILE_PATH", "/var/lib/wellness.json")
	t.Setenv("WELLNESS_SCHEDULER__ENABLED", "false")
	t.Setenv("WELLNESS_LOG__LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "/var/lib/wellness.json", cfg.Storage.FilePath)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://legacy:27017")
	t.Setenv("PORT", "4000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://legacy:27017", cfg.Mongo.URI)
	assert.Equal(t, ":4000", cfg.Server.Addr)

	t.Setenv("WELLNESS_MONGO__URI", "mongodb://preferred:27017")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://preferred:27017", cfg.Mongo.URI)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown fallback", func(c *Config) { c.Storage.Fallback = "redis" }},
		{"missing file path", func(c *Config) { c.Storage.FilePath = "" }},
		{"missing sqlite path", func(c *Config) {
			c.Storage.Fallback = FallbackSQLite
			c.Storage.SQLitePath = ""
		}},
		{"zero poll interval", func(c *Config) { c.Scheduler.PollInterval = 0 }},
		{"negative lookahead", func(c *Config) { c.Scheduler.Lookahead = -time.Second }},
		{"zero mongo timeout", func(c *Config) {
			c.Mongo.URI = "mongodb://db"
			c.Mongo.ConnectTimeout = 0
		}},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateIgnoresDisabledScheduler(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Scheduler.Enabled = false
	cfg.Scheduler.PollInterval = 0
	assert.NoError(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	log, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "id", "r1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "r1", line["id"])
}
