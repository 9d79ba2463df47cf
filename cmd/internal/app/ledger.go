package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jotter/cmd/internal/auth/session"
)

// ledgerBackend resolves the configured backend name, applying the default.
func ledgerBackend(cfg Config) (string, error) {
	b := strings.ToLower(strings.TrimSpace(cfg.LedgerBackend))
	switch b {
	case "":
		if cfg.DatabaseURL != "" {
			return LedgerPostgres, nil
		}
		return LedgerMemory, nil
	case LedgerMemory, LedgerRedis:
		return b, nil
	case LedgerPostgres:
		if cfg.DatabaseURL == "" {
			return "", fmt.Errorf("ledger: %s backend requires JOTTER_DATABASE_URL", b)
		}
		return b, nil
	default:
		return "", fmt.Errorf("ledger: unknown backend %q", cfg.LedgerBackend)
	}
}

// newLedger builds the token ledger. rdb is non-nil only for the redis
// backend and is owned by the caller.
func newLedger(ctx context.Context, cfg Config, scfg session.Config, pool *pgxpool.Pool, log Logger) (session.Ledger, *redis.Client, error) {
	backend, err := ledgerBackend(cfg)
	if err != nil {
		return nil, nil, err
	}

	switch backend {
	case LedgerPostgres:
		l, err := session.NewPostgresLedger(pool, session.WithLedgerCapacity(scfg.LedgerCapacity))
		if err != nil {
			return nil, nil, err
		}
		log.Info("ledger.postgres")
		return l, nil, nil

	case LedgerRedis:
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("ledger: redis backend requires JOTTER_REDIS_URL")
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := pingRedis(ctx, rdb, 3*time.Second); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ledger: redis ping: %w", err)
		}
		l, err := session.NewRedisLedger(rdb,
			session.WithRedisCapacity(scfg.LedgerCapacity),
			session.WithRedisTTL(scfg.RefreshTokenTTL),
		)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		log.Info("ledger.redis", "addr", opts.Addr)
		return l, rdb, nil

	default:
		log.Warn("ledger.memory", "note", "single process only")
		return session.NewMemoryLedger(scfg.LedgerCapacity), nil, nil
	}
}

func pingRedis(parent context.Context, rdb *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
