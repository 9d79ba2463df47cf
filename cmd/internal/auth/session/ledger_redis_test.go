package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLedger(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T, capacity int) Ledger {
		_, rdb := newMiniredis(t)
		l, err := NewRedisLedger(rdb, WithRedisCapacity(capacity))
		require.NoError(t, err)
		return l
	})
}

func TestRedisLedger_KeysExpireWithRefreshTTL(t *testing.T) {
	mr, rdb := newMiniredis(t)
	l, err := NewRedisLedger(rdb, WithRedisPrefix("t:"), WithRedisTTL(time.Hour))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Append(ctx, "u1", digestN(1), t0))

	require.True(t, mr.Exists("t:ledger:{u1}"))
	require.Equal(t, time.Hour, mr.TTL("t:ledger:{u1}"))

	mr.FastForward(time.Hour + time.Second)
	ok, err := l.Contains(ctx, "u1", digestN(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisLedger_ClearAllRemovesEveryKey(t *testing.T) {
	mr, rdb := newMiniredis(t)
	l, err := NewRedisLedger(rdb)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Append(ctx, "u1", digestN(1), t0))
	require.NoError(t, l.ClearAll(ctx, "u1"))

	require.Empty(t, mr.Keys())
}

func TestNewRedisLedger_Validation(t *testing.T) {
	_, err := NewRedisLedger(nil)
	require.Error(t, err)

	_, rdb := newMiniredis(t)
	_, err = NewRedisLedger(rdb, WithRedisCapacity(0))
	require.ErrorIs(t, err, ErrConfig)
	_, err = NewRedisLedger(rdb, WithRedisTTL(0))
	require.ErrorIs(t, err, ErrConfig)
}
