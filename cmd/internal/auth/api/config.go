package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool

	TrustProxy   bool
	MaxBodyBytes int64

	// RatePerMinute and RateBurst shape the per-IP token bucket shared by
	// register, login and refresh.
	RatePerMinute float64
	RateBurst     int
	// RateCacheSize bounds how many client IPs are tracked at once.
	RateCacheSize int
}

// DefaultConfig returns production defaults (secure cookies).
func DefaultConfig() Config {
	return Config{
		AccessCookieName:  "jotter_access",
		RefreshCookieName: "jotter_refresh",
		CookiePath:        "/",
		CookieSecure:      true,
		MaxBodyBytes:      1 << 20, // 1 MiB
		RatePerMinute:     30,
		RateBurst:         10,
		RateCacheSize:     10_000,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
// Cookies are Secure unless appEnv is "development"; JOTTER_AUTH_COOKIE_SECURE overrides both.
func LoadConfigFromEnv(appEnv string) Config {
	def := DefaultConfig()
	devDefault := strings.EqualFold(strings.TrimSpace(appEnv), "development")

	cfg := Config{
		AccessCookieName:  envString("JOTTER_AUTH_ACCESS_COOKIE", def.AccessCookieName),
		RefreshCookieName: envString("JOTTER_AUTH_REFRESH_COOKIE", def.RefreshCookieName),
		CookiePath:        def.CookiePath,
		CookieDomain:      strings.TrimSpace(os.Getenv("JOTTER_AUTH_COOKIE_DOMAIN")),
		CookieSecure:      envBool("JOTTER_AUTH_COOKIE_SECURE", !devDefault),
		TrustProxy:        envBool("JOTTER_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("JOTTER_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		RatePerMinute:     envFloat("JOTTER_AUTH_RATE_PER_MINUTE", def.RatePerMinute),
		RateBurst:         envInt("JOTTER_AUTH_RATE_BURST", def.RateBurst),
		RateCacheSize:     envInt("JOTTER_AUTH_RATE_CACHE_SIZE", def.RateCacheSize),
	}

	if cfg.AccessCookieName == cfg.RefreshCookieName {
		cfg.AccessCookieName = def.AccessCookieName
		cfg.RefreshCookieName = def.RefreshCookieName
	}
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}
