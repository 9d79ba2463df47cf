package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// runLedgerSuite exercises the Ledger contract against any implementation.
// newLedger must return an empty ledger with the given capacity.
func runLedgerSuite(t *testing.T, newLedger func(t *testing.T, capacity int) Ledger) {
	t.Run("AppendContainsRemove", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t, 10)

		require.NoError(t, l.Append(ctx, "u1", digestN(1), t0))
		ok, err := l.Contains(ctx, "u1", digestN(1))
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.Contains(ctx, "u2", digestN(1))
		require.NoError(t, err)
		require.False(t, ok, "ledgers are per identity")

		removed, err := l.Remove(ctx, "u1", digestN(1))
		require.NoError(t, err)
		require.True(t, removed)

		removed, err = l.Remove(ctx, "u1", digestN(1))
		require.NoError(t, err)
		require.False(t, removed)

		ok, err = l.Contains(ctx, "u1", digestN(1))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("AppendIsIdempotent", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t, 10)

		require.NoError(t, l.Append(ctx, "u1", digestN(1), t0))
		require.NoError(t, l.Append(ctx, "u1", digestN(1), t0.Add(time.Second)))

		entries, err := l.Entries(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("EvictsOldestPastCapacity", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t, 10)

		for i := 1; i <= 11; i++ {
			require.NoError(t, l.Append(ctx, "u1", digestN(i), t0.Add(time.Duration(i)*time.Second)))
		}

		entries, err := l.Entries(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, entries, 10)
		require.Equal(t, digestN(2), entries[0].Digest)
		require.Equal(t, digestN(11), entries[9].Digest)
		require.Equal(t, t0.Add(2*time.Second).Truncate(time.Millisecond), entries[0].CreatedAt.Truncate(time.Millisecond))

		ok, err := l.Contains(ctx, "u1", digestN(1))
		require.NoError(t, err)
		require.False(t, ok, "oldest entry evicted")
	})

	t.Run("RedeemSwapsAndEvicts", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t, 3)

		for i := 1; i <= 3; i++ {
			require.NoError(t, l.Append(ctx, "u1", digestN(i), t0))
		}

		ok, err := l.Redeem(ctx, "u1", digestN(2), digestN(4), t0)
		require.NoError(t, err)
		require.True(t, ok)

		entries, err := l.Entries(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, []string{digestN(1), digestN(3), digestN(4)}, digests(entries))

		ok, err = l.Redeem(ctx, "u1", digestN(2), digestN(5), t0)
		require.NoError(t, err)
		require.False(t, ok, "second redemption fails")

		entries, err = l.Entries(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, []string{digestN(1), digestN(3), digestN(4)}, digests(entries), "failed redeem writes nothing")
	})

	t.Run("ClearAll", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t, 10)

		require.NoError(t, l.Append(ctx, "u1", digestN(1), t0))
		require.NoError(t, l.Append(ctx, "u1", digestN(2), t0))
		require.NoError(t, l.Append(ctx, "u2", digestN(3), t0))
		require.NoError(t, l.ClearAll(ctx, "u1"))

		entries, err := l.Entries(ctx, "u1")
		require.NoError(t, err)
		require.Empty(t, entries)

		entries, err = l.Entries(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("ConcurrentRedeemHasOneWinner", func(t *testing.T) {
		ctx := context.Background()
		l := newLedger(t, 10)
		require.NoError(t, l.Append(ctx, "u1", digestN(0), t0))

		const n = 16
		var wins atomic.Int32
		start := make(chan struct{})

		var g errgroup.Group
		for i := 1; i <= n; i++ {
			g.Go(func() error {
				<-start
				ok, err := l.Redeem(ctx, "u1", digestN(0), digestN(100+i), t0)
				if err != nil {
					return err
				}
				if ok {
					wins.Add(1)
				}
				return nil
			})
		}
		close(start)
		require.NoError(t, g.Wait())
		require.Equal(t, int32(1), wins.Load())

		entries, err := l.Entries(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})
}

// digestN returns a 64-char hex-looking digest unique to n.
func digestN(n int) string { return fmt.Sprintf("%064x", n) }

func digests(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Digest)
	}
	return out
}
