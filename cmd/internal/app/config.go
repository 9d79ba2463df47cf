package app

import "time"

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	Env       string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	RedisURL string

	// LedgerBackend is one of LedgerMemory, LedgerPostgres or LedgerRedis.
	// Empty selects postgres when DatabaseURL is set, memory otherwise.
	LedgerBackend string

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, JOTTER_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and ledger digests are HMAC-based.
	RequireTokenHMAC bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("JOTTER_HTTP_ADDR", "0.0.0.0:8080"),
		Env:       EnvString("JOTTER_ENV", "production"),
		LogLevel:  EnvString("JOTTER_LOG_LEVEL", "info"),
		LogFormat: EnvString("JOTTER_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("JOTTER_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("JOTTER_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("JOTTER_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("JOTTER_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("JOTTER_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("JOTTER_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("JOTTER_DATABASE_URL", ""),
		DBMaxConns:    EnvInt32("JOTTER_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("JOTTER_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("JOTTER_DB_AUTO_MIGRATE", false),

		RedisURL:      EnvString("JOTTER_REDIS_URL", ""),
		LedgerBackend: EnvString("JOTTER_LEDGER_BACKEND", ""),

		ReadinessRequireDB: EnvBool("JOTTER_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("JOTTER_REQUIRE_TOKEN_HMAC", false),

		CORSAllowedOrigins:   EnvList("JOTTER_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("JOTTER_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("JOTTER_CORS_MAX_AGE_SECONDS", 600),
	}
}
