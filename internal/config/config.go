package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrSamePaths is returned when the combined file would overwrite an input.
var ErrSamePaths = errors.New("combined_path must differ from base_path and user_path")

// Default file names inside DataDir.
const (
	DefaultBaseFile     = "stations_base.json"
	DefaultUserFile     = "stations_user.json"
	DefaultCombinedFile = "stations_combined.json"
)

// LogConfig controls the zap logger.
type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" envDefault:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" envDefault:"console"`
}

// Config holds application configuration. Only the data directory (or the
// three explicit paths) is needed; Redis and Postgres are optional.
type Config struct {
	DataDir      string `yaml:"data_dir" env:"STATIONVAULT_DATA_DIR" envDefault:"data"`
	BasePath     string `yaml:"base_path" env:"STATIONVAULT_BASE_PATH"`
	UserPath     string `yaml:"user_path" env:"STATIONVAULT_USER_PATH"`
	CombinedPath string `yaml:"combined_path" env:"STATIONVAULT_COMBINED_PATH"`
	ExportDir    string `yaml:"export_dir" env:"STATIONVAULT_EXPORT_DIR"`

	SearchLimit int `yaml:"search_limit" env:"STATIONVAULT_SEARCH_LIMIT" envDefault:"50"`

	RedisURL string        `yaml:"redis_url" env:"REDIS_URL"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" envDefault:"10m"`

	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	ServerPort  string `yaml:"server_port" env:"SERVER_PORT" envDefault:"8080"`

	Log LogConfig `yaml:"log"`
}

// Load builds config from environment variables. If no STATIONVAULT_*
// location is set, .env.local and .env are loaded first.
func Load() (*Config, error) {
	if os.Getenv("STATIONVAULT_DATA_DIR") == "" && os.Getenv("STATIONVAULT_BASE_PATH") == "" {
		loadEnvFiles()
	}
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

// finish fills derived paths and validates.
func (c *Config) finish() error {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.BasePath == "" {
		c.BasePath = filepath.Join(c.DataDir, DefaultBaseFile)
	}
	if c.UserPath == "" {
		c.UserPath = filepath.Join(c.DataDir, DefaultUserFile)
	}
	if c.CombinedPath == "" {
		c.CombinedPath = filepath.Join(c.DataDir, DefaultCombinedFile)
	}
	if c.ExportDir == "" {
		c.ExportDir = "."
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 50
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
	if filepath.Clean(c.CombinedPath) == filepath.Clean(c.BasePath) ||
		filepath.Clean(c.CombinedPath) == filepath.Clean(c.UserPath) {
		return ErrSamePaths
	}
	return nil
}
