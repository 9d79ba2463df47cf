package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MinSecretBytes is the shortest accepted HS256 signing secret.
const MinSecretBytes = 32

// Ledger capacity bounds.
const (
	DefaultLedgerCapacity = 10
	MaxLedgerCapacity     = 100
)

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Issuer is the value set in the "iss" claim of both token classes.
	Issuer string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// AccessSecret and RefreshSecret sign their respective token classes.
	// They must differ.
	AccessSecret  []byte
	RefreshSecret []byte

	// LedgerCapacity bounds outstanding refresh tokens per identity.
	LedgerCapacity int
}

// DefaultConfig returns defaults without secrets.
func DefaultConfig() Config {
	return Config{
		Issuer:          "jotter",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		LedgerCapacity:  DefaultLedgerCapacity,
	}
}

// Validate reports ErrConfig when cfg cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Issuer) == "" {
		return ErrConfig
	}
	if c.AccessTokenTTL < time.Second || c.RefreshTokenTTL < time.Second {
		return ErrConfig
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return ErrConfig
	}
	if len(c.AccessSecret) < MinSecretBytes || len(c.RefreshSecret) < MinSecretBytes {
		return ErrConfig
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return ErrConfig
	}
	if c.LedgerCapacity < 1 || c.LedgerCapacity > MaxLedgerCapacity {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - JOTTER_ACCESS_TOKEN_SECRET (>= 32 bytes)
//   - JOTTER_REFRESH_TOKEN_SECRET (>= 32 bytes, different from the access secret)
//
// Optional (durations must be valid Go duration strings):
//   - JOTTER_AUTH_ISSUER
//   - JOTTER_AUTH_ACCESS_TTL
//   - JOTTER_AUTH_REFRESH_TTL
//   - JOTTER_LEDGER_CAPACITY
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("JOTTER_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("JOTTER_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("JOTTER_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := os.Getenv("JOTTER_LEDGER_CAPACITY"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.LedgerCapacity = n
	}

	cfg.AccessSecret = []byte(os.Getenv("JOTTER_ACCESS_TOKEN_SECRET"))
	cfg.RefreshSecret = []byte(os.Getenv("JOTTER_REFRESH_TOKEN_SECRET"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
