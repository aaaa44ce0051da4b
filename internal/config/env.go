package config

import (
	"fmt"
	"strconv"
	"strings"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overlays MINPIC_* variables on top of the decoded file.
func applyEnv(cfg *AppConfig, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err)
		}
		*dst = n
		return nil
	}

	str("ENV", &cfg.Env)
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)
	str("DATABASE_HOST", &cfg.Database.Host)
	str("DATABASE_USER", &cfg.Database.User)
	str("DATABASE_PASSWORD", &cfg.Database.Password)
	str("DATABASE_NAME", &cfg.Database.Name)
	str("REDIS_URL", &cfg.RedisURL)
	str("AUTH_TOKEN", &cfg.Auth.Token)
	str("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("PATHS_LOGS", &cfg.Paths.Logs)
	str("FFMPEG_PATH", &cfg.Thumbnail.FFmpegPath)
	if v, ok := lookup(EnvPrefix + "ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}

	for name, dst := range map[string]*int{
		"PORT":                 &cfg.Port,
		"DATABASE_PORT":        &cfg.Database.Port,
		"SHORTLINK_ATTEMPTS":   &cfg.Shortlink.Attempts,
		"SHORTLINK_BACKOFF_MS": &cfg.Shortlink.BackoffMS,
		"EXPIRY_SWEEP_MINUTES": &cfg.ExpirySweepMinutes,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}
