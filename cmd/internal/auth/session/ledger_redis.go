package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// pushScript appends ARGV[2] to an identity's ledger, optionally redeeming
// ARGV[1] first. It returns 0 without writing when ARGV[1] is set and absent.
//
// KEYS[1] sorted set digest -> insertion seq
// KEYS[2] insertion seq counter
// KEYS[3] hash digest -> created_at (unix ms)
var pushScript = redis.NewScript(`
local zset, seqk, atk = KEYS[1], KEYS[2], KEYS[3]
local old, new, now = ARGV[1], ARGV[2], ARGV[3]
local cap, ttl = tonumber(ARGV[4]), tonumber(ARGV[5])

if old ~= "" then
  if redis.call("ZREM", zset, old) == 0 then
    return 0
  end
  redis.call("HDEL", atk, old)
end

if redis.call("ZSCORE", zset, new) == false then
  local seq = redis.call("INCR", seqk)
  redis.call("ZADD", zset, seq, new)
  redis.call("HSET", atk, new, now)
end

local n = redis.call("ZCARD", zset)
if n > cap then
  local evicted = redis.call("ZRANGE", zset, 0, n - cap - 1)
  redis.call("ZREMRANGEBYRANK", zset, 0, n - cap - 1)
  for _, m in ipairs(evicted) do
    redis.call("HDEL", atk, m)
  end
end

redis.call("PEXPIRE", zset, ttl)
redis.call("PEXPIRE", seqk, ttl)
redis.call("PEXPIRE", atk, ttl)
return 1
`)

// RedisLedger keeps each identity's ledger in a sorted set scored by
// insertion order. Append and Redeem run as one Lua script, so they are
// atomic across every process sharing the Redis server.
type RedisLedger struct {
	rdb      redis.UniversalClient
	prefix   string
	capacity int
	ttl      time.Duration
}

// RedisLedgerOption configures a RedisLedger.
type RedisLedgerOption func(*RedisLedger) error

// WithRedisPrefix sets the key prefix (default "jotter:").
func WithRedisPrefix(prefix string) RedisLedgerOption {
	return func(l *RedisLedger) error {
		l.prefix = prefix
		return nil
	}
}

// WithRedisCapacity sets the per-identity capacity.
func WithRedisCapacity(n int) RedisLedgerOption {
	return func(l *RedisLedger) error {
		if n < 1 || n > MaxLedgerCapacity {
			return ErrConfig
		}
		l.capacity = n
		return nil
	}
}

// WithRedisTTL sets how long an idle ledger survives. It should be at least
// the refresh token TTL; every write extends it.
func WithRedisTTL(d time.Duration) RedisLedgerOption {
	return func(l *RedisLedger) error {
		if d < time.Second {
			return ErrConfig
		}
		l.ttl = d
		return nil
	}
}

// NewRedisLedger constructs a RedisLedger. The client is owned by the caller.
func NewRedisLedger(rdb redis.UniversalClient, opts ...RedisLedgerOption) (*RedisLedger, error) {
	l := &RedisLedger{
		rdb:      rdb,
		prefix:   "jotter:",
		capacity: DefaultLedgerCapacity,
		ttl:      DefaultConfig().RefreshTokenTTL,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.rdb == nil {
		return nil, fmt.Errorf("session: nil redis client")
	}
	return l, nil
}

// keys share a hash tag so scripts stay single-slot on Redis Cluster.
func (l *RedisLedger) keys(identityID string) []string {
	base := l.prefix + "ledger:{" + identityID + "}"
	return []string{base, base + ":seq", base + ":at"}
}

func (l *RedisLedger) push(ctx context.Context, identityID, oldDigest, newDigest string, now time.Time) (bool, error) {
	n, err := pushScript.Run(ctx, l.rdb, l.keys(identityID),
		oldDigest,
		newDigest,
		now.UTC().UnixMilli(),
		l.capacity,
		l.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RedisLedger) Append(ctx context.Context, identityID, digest string, now time.Time) error {
	_, err := l.push(ctx, identityID, "", digest, now)
	return err
}

func (l *RedisLedger) Redeem(ctx context.Context, identityID, oldDigest, newDigest string, now time.Time) (bool, error) {
	if oldDigest == "" {
		return false, nil
	}
	return l.push(ctx, identityID, oldDigest, newDigest, now)
}

func (l *RedisLedger) Contains(ctx context.Context, identityID, digest string) (bool, error) {
	_, err := l.rdb.ZScore(ctx, l.keys(identityID)[0], digest).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *RedisLedger) Remove(ctx context.Context, identityID, digest string) (bool, error) {
	k := l.keys(identityID)

	var zrem *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		zrem = p.ZRem(ctx, k[0], digest)
		p.HDel(ctx, k[2], digest)
		return nil
	})
	if err != nil {
		return false, err
	}
	return zrem.Val() == 1, nil
}

func (l *RedisLedger) ClearAll(ctx context.Context, identityID string) error {
	return l.rdb.Del(ctx, l.keys(identityID)...).Err()
}

func (l *RedisLedger) Entries(ctx context.Context, identityID string) ([]Entry, error) {
	k := l.keys(identityID)

	var (
		members *redis.StringSliceCmd
		created *redis.MapStringStringCmd
	)
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		members = p.ZRange(ctx, k[0], 0, -1)
		created = p.HGetAll(ctx, k[2])
		return nil
	})
	if err != nil {
		return nil, err
	}

	at := created.Val()
	out := make([]Entry, 0, len(members.Val()))
	for _, m := range members.Val() {
		e := Entry{Digest: m}
		if ms, err := strconv.ParseInt(at[m], 10, 64); err == nil {
			e.CreatedAt = time.UnixMilli(ms).UTC()
		}
		out = append(out, e)
	}
	return out, nil
}
