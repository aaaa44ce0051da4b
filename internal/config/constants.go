package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	// EnvPrefix prefixes every environment override (MINPIC_PORT, MINPIC_DATABASE_DSN, ...).
	EnvPrefix = "MINPIC_"

	defaultPort       = 3000
	defaultEnv        = "production"
	defaultDBDriver   = "mysql"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBName     = "minpic"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultSQLitePath = "data/minpic.db"
	defaultLogsSubdir = "logs"

	defaultFFmpegPath       = "ffmpeg"
	defaultThumbMaxWidth    = 400
	defaultThumbMaxHeight   = 400
	defaultThumbQuality     = 85
	defaultThumbTimeoutSecs = 30

	defaultShortlinkAttempts    = 3
	defaultShortlinkBackoffMS   = 1000
	defaultShortlinkTimeoutSecs = 10

	defaultExpirySweepMinutes = 60
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)
