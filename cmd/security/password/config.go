package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds accepted password lengths (in runes).
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the interactive-login baseline.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FastConfig returns the cheapest parameters Verify still accepts. Tests and local tooling only.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

// FromEnv loads config from environment variables.
//
// Env surface:
//   - JOTTER_PASSWORD_MIN_LEN
//   - JOTTER_PASSWORD_MAX_LEN
//   - JOTTER_ARGON2_MEMORY_KIB
//   - JOTTER_ARGON2_ITERATIONS
//   - JOTTER_ARGON2_PARALLELISM
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := envInt("JOTTER_PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength); err != nil {
		return Config{}, err
	}
	if err := envInt("JOTTER_PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength); err != nil {
		return Config{}, err
	}

	var mem, it, par int
	if err := envInt("JOTTER_ARGON2_MEMORY_KIB", 8*1024, 1024*1024, &mem); err != nil {
		return Config{}, err
	}
	if err := envInt("JOTTER_ARGON2_ITERATIONS", 1, 20, &it); err != nil {
		return Config{}, err
	}
	if err := envInt("JOTTER_ARGON2_PARALLELISM", 1, 64, &par); err != nil {
		return Config{}, err
	}
	if mem > 0 {
		cfg.Params.MemoryKiB = uint32(mem) // #nosec G115 -- bounded by envInt.
	}
	if it > 0 {
		cfg.Params.Iterations = uint32(it) // #nosec G115 -- bounded by envInt.
	}
	if par > 0 {
		cfg.Params.Parallelism = uint8(par) // #nosec G115 -- bounded by envInt.
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

// envInt leaves dst untouched when key is unset.
func envInt(key string, minVal, maxVal int, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: not an integer", key)
	}
	if n < minVal || n > maxVal {
		return fmt.Errorf("%s: out of range [%d..%d]", key, minVal, maxVal)
	}
	*dst = n
	return nil
}
