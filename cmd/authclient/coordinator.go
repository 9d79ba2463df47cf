package authclient

import (
	"context"
	"sync"
	"time"
)

// RefreshFunc obtains a new access token from the server.
type RefreshFunc func(ctx context.Context) (string, error)

// Coordinator serialises access-token refreshes for one client process.
//
// While a refresh is in flight every other Await call is queued and resolved
// with the same outcome. A failed refresh clears the held token and fails
// every queued caller; none of them is replayed. The failure is terminal:
// later Await calls return it without refreshing until SetToken installs a
// new token.
type Coordinator struct {
	refresh  RefreshFunc
	onUnauth func(error)
	timeout  time.Duration
	deliver  func(waiter, outcome)

	mu       sync.Mutex
	token    string
	failed   error
	inFlight bool
	seq      uint64
	waiters  []waiter
}

type waiter struct {
	seq uint64
	ch  chan outcome
}

type outcome struct {
	token string
	err   error
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// OnUnauthenticated registers fn to run once per failed refresh, after all
// waiters have been released. It is the hook for moving the UI to a login
// state.
func OnUnauthenticated(fn func(error)) CoordinatorOption {
	return func(c *Coordinator) { c.onUnauth = fn }
}

// WithRefreshTimeout bounds a single refresh call (default 30s).
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCoordinator returns a Coordinator that refreshes with fn.
func NewCoordinator(fn RefreshFunc, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{refresh: fn, timeout: 30 * time.Second, deliver: sendOutcome}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Token returns the held access token ("" when signed out).
func (c *Coordinator) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SetToken replaces the held access token, e.g. after login. It also ends
// the signed-out state left by a failed refresh.
func (c *Coordinator) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.failed = nil
	c.mu.Unlock()
}

func sendOutcome(w waiter, o outcome) { w.ch <- o }

// Await returns an access token newer than stale, the token a caller just
// saw rejected.
//
// If a refresh is running, Await waits for it. If the held token already
// differs from stale, another caller refreshed in the meantime and that token
// is returned without a network call. Otherwise the caller becomes the
// leader and runs the RefreshFunc exactly once. After a failed refresh Await
// returns that error until SetToken is called.
//
// Waiters are notified in the order they queued. Once notified they return
// independently, so any requests they replay run concurrently.
//
// The refresh itself is not cancelled by ctx; a cancelled waiter just stops
// waiting.
func (c *Coordinator) Await(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if c.inFlight {
		c.seq++
		w := waiter{seq: c.seq, ch: make(chan outcome, 1)}
		c.waiters = append(c.waiters, w)
		c.mu.Unlock()

		select {
		case o := <-w.ch:
			return o.token, o.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if c.failed != nil {
		err := c.failed
		c.mu.Unlock()
		return "", err
	}
	if c.token != "" && c.token != stale {
		tok := c.token
		c.mu.Unlock()
		return tok, nil
	}
	c.inFlight = true
	c.mu.Unlock()

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	tok, err := c.refresh(rctx)
	cancel()

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	if err != nil {
		c.token = ""
		c.failed = err
		tok = ""
	} else {
		c.token = tok
	}
	c.mu.Unlock()

	for _, w := range waiters {
		c.deliver(w, outcome{token: tok, err: err})
	}
	if err != nil && c.onUnauth != nil {
		c.onUnauth(err)
	}
	return tok, err
}
