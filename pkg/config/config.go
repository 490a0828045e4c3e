// Package config loads the server and CLI configuration from defaults, an
// optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Fallback backend kinds.
const (
	FallbackFile   = "file"
	FallbackSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override. Levels are separated by a
// double underscore: WELLNESS_MONGO__URI sets mongo.uri.
const EnvPrefix = "WELLNESS_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Storage   StorageConfig   `koanf:"storage"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Timezone  string          `koanf:"timezone"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"` // Empty runs on the fallback only
	Database       string        `koanf:"database"`
	Collection     string        `koanf:"collection"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type StorageConfig struct {
	Fallback   string `koanf:"fallback"` // file or sqlite
	FilePath   string `koanf:"file_path"`
	SQLitePath string `koanf:"sqlite_path"`
}

type SchedulerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	PollInterval time.Duration `koanf:"poll_interval"`
	Lookahead    time.Duration `koanf:"lookahead"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Plain MONGO_URI and PORT, as set by existing deployments
	if uri := os.Getenv("MONGO_URI"); uri != "" && os.Getenv(EnvPrefix+"MONGO__URI") == "" {
		k.Set("mongo.uri", uri)
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"SERVER__ADDR") == "" {
		k.Set("server.addr", ":"+port)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Storage.Fallback {
	case FallbackFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage.file_path is required for the file fallback")
		}
	case FallbackSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite fallback")
		}
	default:
		return fmt.Errorf("unknown storage.fallback: %s (supported: %s, %s)",
			c.Storage.Fallback, FallbackFile, FallbackSQLite)
	}

	if c.Mongo.URI != "" && c.Mongo.ConnectTimeout <= 0 {
		return fmt.Errorf("mongo.connect_timeout must be positive")
	}

	if c.Scheduler.Enabled {
		if c.Scheduler.PollInterval <= 0 {
			return fmt.Errorf("scheduler.poll_interval must be positive")
		}
		if c.Scheduler.Lookahead <= 0 {
			return fmt.Errorf("scheduler.lookahead must be positive")
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format: %s (supported: text, json)", c.Log.Format)
	}

	return nil
}

// Location resolves Timezone. "Local" and the empty string mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
