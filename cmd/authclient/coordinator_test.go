package authclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func (c *Coordinator) queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// gatedRefresh blocks every refresh until release is closed.
type gatedRefresh struct {
	calls   atomic.Int32
	release chan struct{}
	token   string
	err     error
}

func (g *gatedRefresh) fn(ctx context.Context) (string, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.token, g.err
}

func TestCoordinator_ConcurrentCallersShareOneRefresh(t *testing.T) {
	g := &gatedRefresh{release: make(chan struct{}), token: "new"}
	c := NewCoordinator(g.fn)
	c.SetToken("old")

	const n = 3
	results := make([]string, n)
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			tok, err := c.Await(context.Background(), "old")
			results[i] = tok
			return err
		})
	}

	require.Eventually(t, func() bool { return g.calls.Load() == 1 && c.queued() == n-1 }, time.Second, time.Millisecond)
	close(g.release)
	require.NoError(t, eg.Wait())

	require.Equal(t, int32(1), g.calls.Load())
	require.Equal(t, []string{"new", "new", "new"}, results)
	require.Equal(t, "new", c.Token())
	require.Zero(t, c.queued())
}

func TestCoordinator_FailureReleasesEveryWaiter(t *testing.T) {
	refreshErr := errors.New("refresh rejected")
	g := &gatedRefresh{release: make(chan struct{}), err: refreshErr}

	var unauth atomic.Int32
	c := NewCoordinator(g.fn, OnUnauthenticated(func(err error) {
		if errors.Is(err, refreshErr) {
			unauth.Add(1)
		}
	}))
	c.SetToken("old")

	const n = 4
	var failed atomic.Int32
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			if _, err := c.Await(context.Background(), "old"); errors.Is(err, refreshErr) {
				failed.Add(1)
			}
			return nil
		})
	}

	require.Eventually(t, func() bool { return c.queued() == n-1 }, time.Second, time.Millisecond)
	close(g.release)
	require.NoError(t, eg.Wait())

	require.Equal(t, int32(n), failed.Load())
	require.Equal(t, int32(1), g.calls.Load())
	require.Equal(t, int32(1), unauth.Load())
	require.Empty(t, c.Token())
}

func TestCoordinator_StaleTokenShortcut(t *testing.T) {
	var calls atomic.Int32
	c := NewCoordinator(func(context.Context) (string, error) {
		calls.Add(1)
		return "unexpected", nil
	})
	c.SetToken("fresh")

	tok, err := c.Await(context.Background(), "rejected")
	require.NoError(t, err)
	require.Equal(t, "fresh", tok)
	require.Zero(t, calls.Load())

	// The held token itself was rejected: refresh.
	tok, err = c.Await(context.Background(), "fresh")
	require.NoError(t, err)
	require.Equal(t, "unexpected", tok)
	require.Equal(t, int32(1), calls.Load())
}

func TestCoordinator_NextRefreshAfterCompletion(t *testing.T) {
	var calls atomic.Int32
	c := NewCoordinator(func(context.Context) (string, error) {
		return []string{"t1", "t2"}[calls.Add(1)-1], nil
	})

	tok, err := c.Await(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "t1", tok)

	tok, err = c.Await(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, "t2", tok)
}

func TestCoordinator_CancelledWaiterDoesNotCancelRefresh(t *testing.T) {
	g := &gatedRefresh{release: make(chan struct{}), token: "new"}
	c := NewCoordinator(g.fn)

	leaderDone := make(chan error, 1)
	go func() {
		_, err := c.Await(context.Background(), "")
		leaderDone <- err
	}()
	require.Eventually(t, func() bool { return g.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := c.Await(ctx, "")
		waiterDone <- err
	}()
	require.Eventually(t, func() bool { return c.queued() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-waiterDone, context.Canceled)

	close(g.release)
	require.NoError(t, <-leaderDone)
	require.Equal(t, "new", c.Token())
}

func TestCoordinator_FailureIsTerminalUntilSetToken(t *testing.T) {
	refreshErr := errors.New("reuse detected")
	var calls atomic.Int32
	var unauth atomic.Int32
	c := NewCoordinator(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", refreshErr
		}
		return "after-login", nil
	}, OnUnauthenticated(func(error) { unauth.Add(1) }))
	c.SetToken("old")

	_, err := c.Await(context.Background(), "old")
	require.ErrorIs(t, err, refreshErr)

	// A request that carried the old token comes back late.
	_, err = c.Await(context.Background(), "old")
	require.ErrorIs(t, err, refreshErr)
	_, err = c.Await(context.Background(), "")
	require.ErrorIs(t, err, refreshErr)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, int32(1), unauth.Load())

	c.SetToken("login")
	tok, err := c.Await(context.Background(), "login")
	require.NoError(t, err)
	require.Equal(t, "after-login", tok)
	require.Equal(t, int32(2), calls.Load())
}

func TestCoordinator_WaitersNotifiedInQueueOrder(t *testing.T) {
	g := &gatedRefresh{release: make(chan struct{}), token: "new"}
	c := NewCoordinator(g.fn)
	c.SetToken("old")

	var order []uint64
	c.deliver = func(w waiter, o outcome) {
		order = append(order, w.seq)
		sendOutcome(w, o)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		_, err := c.Await(context.Background(), "old")
		return err
	})
	require.Eventually(t, func() bool { return g.calls.Load() == 1 }, time.Second, time.Millisecond)

	const n = 5
	for i := 1; i <= n; i++ {
		eg.Go(func() error {
			_, err := c.Await(context.Background(), "old")
			return err
		})
		require.Eventually(t, func() bool { return c.queued() == i }, time.Second, time.Millisecond)
	}

	// Queue order is the order the goroutines were admitted above.
	c.mu.Lock()
	queuedSeq := make([]uint64, 0, n)
	for _, w := range c.waiters {
		queuedSeq = append(queuedSeq, w.seq)
	}
	c.mu.Unlock()
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, queuedSeq)

	close(g.release)
	require.NoError(t, eg.Wait())
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, order)
}
