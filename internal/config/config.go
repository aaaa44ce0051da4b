package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the runtime configuration loaded from config.yml.
type AppConfig struct {
	Port               int             `yaml:"port"`
	Env                string          `yaml:"env"`
	Database           DatabaseConfig  `yaml:"database"`
	RedisURL           string          `yaml:"redis_url"`
	AllowedOrigins     []string        `yaml:"allowed_origins"`
	Auth               AuthConfig      `yaml:"auth"`
	Paths              PathsConfig     `yaml:"paths"`
	Thumbnail          ThumbnailConfig `yaml:"thumbnail"`
	Shortlink          ShortlinkConfig `yaml:"shortlink"`
	ExpirySweepMinutes int             `yaml:"expiry_sweep_minutes"`
}

// DatabaseConfig selects the catalog driver. DSN wins over the discrete MySQL fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// AuthConfig enables the API guard when either field is set.
type AuthConfig struct {
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
}

type PathsConfig struct {
	Logs string `yaml:"logs"`
}

type ThumbnailConfig struct {
	FFmpegPath     string `yaml:"ffmpeg_path"`
	MaxWidth       int    `yaml:"max_width"`
	MaxHeight      int    `yaml:"max_height"`
	Quality        int    `yaml:"quality"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ShortlinkConfig tunes the outbound short-link client, not the service credentials
// (those live in the catalog and are edited through the API).
type ShortlinkConfig struct {
	Attempts       int `yaml:"attempts"`
	BackoffMS      int `yaml:"backoff_ms"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Load reads the YAML file at configPath, applies MINPIC_* overrides and defaults.
// A missing file is not an error: defaults plus environment are enough to boot.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := AppConfig{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	normalize(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Driver != DriverMySQL && cfg.Database.Driver != DriverSQLite {
		return nil, fmt.Errorf("invalid database.driver %q in %q, expected mysql or sqlite", cfg.Database.Driver, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	return &cfg, nil
}

func (c *AppConfig) IsDev() bool { return c.Env == "development" }

func (c *AppConfig) LogDir() string { return RuntimePath(c.Paths.Logs, defaultLogsSubdir) }

// AuthEnabled reports whether API routes must be guarded.
func (c *AppConfig) AuthEnabled() bool {
	return c.Auth.Token != "" || c.Auth.JWTSecret != ""
}

func (c *AppConfig) ThumbnailTimeout() time.Duration {
	return time.Duration(c.Thumbnail.TimeoutSeconds) * time.Second
}

func (c *AppConfig) ShortlinkBackoff() time.Duration {
	return time.Duration(c.Shortlink.BackoffMS) * time.Millisecond
}

func (c *AppConfig) ShortlinkTimeout() time.Duration {
	return time.Duration(c.Shortlink.TimeoutSeconds) * time.Second
}

// ExpirySweepInterval is zero when the sweep job is disabled.
func (c *AppConfig) ExpirySweepInterval() time.Duration {
	if c.ExpirySweepMinutes <= 0 {
		return 0
	}
	return time.Duration(c.ExpirySweepMinutes) * time.Minute
}
