package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
)

func normalize(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)

	t := &cfg.Thumbnail
	if strings.TrimSpace(t.FFmpegPath) == "" {
		t.FFmpegPath = defaultFFmpegPath
	}
	if t.MaxWidth <= 0 {
		t.MaxWidth = defaultThumbMaxWidth
	}
	if t.MaxHeight <= 0 {
		t.MaxHeight = defaultThumbMaxHeight
	}
	if t.Quality <= 0 || t.Quality > 100 {
		t.Quality = defaultThumbQuality
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultThumbTimeoutSecs
	}

	s := &cfg.Shortlink
	if s.Attempts <= 0 {
		s.Attempts = defaultShortlinkAttempts
	}
	if s.BackoffMS < 0 {
		s.BackoffMS = 0
	} else if s.BackoffMS == 0 {
		s.BackoffMS = defaultShortlinkBackoffMS
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = defaultShortlinkTimeoutSecs
	}

	if cfg.ExpirySweepMinutes == 0 {
		cfg.ExpirySweepMinutes = defaultExpirySweepMinutes
	}
}

func normalizeDatabaseConfig(cfg DatabaseConfig) DatabaseConfig {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" {
		cfg.Driver = defaultDBDriver
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}
	cfg.User = strings.TrimSpace(cfg.User)
	if cfg.User == "" {
		cfg.User = defaultDBUser
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	return cfg
}

// DSNValue returns the connection string for the configured driver.
func (c DatabaseConfig) DSNValue() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DriverSQLite {
		return RuntimePath("", defaultSQLitePath)
	}

	params := neturl.Values{}
	params.Set("charset", defaultDBCharset)
	params.Set("parseTime", "true")
	params.Set("loc", defaultDBLoc)

	auth := c.User
	if c.Password != "" {
		auth += ":" + c.Password
	}
	return fmt.Sprintf("%s@tcp(%s)/%s?%s", auth, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Name, params.Encode())
}

func normalizeOrigins(origins []string) []string {
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if v := strings.TrimSpace(origin); v != "" {
			result = append(result, v)
		}
	}
	return result
}

func normalizeEnv(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return defaultEnv
	}
	if env == "dev" {
		return "development"
	}
	return env
}
