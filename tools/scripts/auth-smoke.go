// Package main provides a CI-friendly smoke test for the jotter auth API.
//
// It validates, against a running server:
//   - register (or login when the account exists)
//   - /auth/me with the issued access token
//   - concurrent 401s on one client collapse into a single refresh
//   - logout clears the session
//   - refresh rotation: the old refresh token is rejected as reused afterwards
//
// The server must use short access tokens for the concurrency step to run;
// pass -wait with a duration longer than JOTTER_AUTH_ACCESS_TTL.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"jotter/cmd/authclient"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "API base URL")
		email    = flag.String("email", fmt.Sprintf("smoke-%d@example.com", time.Now().UnixNano()), "Account email")
		pass     = flag.String("password", "smoke-password-1", "Account password")
		parallel = flag.Int("parallel", 3, "Concurrent calls for the refresh step")
		wait     = flag.Duration("wait", 0, "Sleep before the concurrent step so the access token expires (0 skips it)")
		timeout  = flag.Duration("timeout", 30*time.Second, "Overall timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+*wait)
	defer cancel()

	c := mustClient(*baseURL)

	u, err := c.Register(ctx, *email, *pass, "Smoke")
	if err != nil {
		if u, err = c.Login(ctx, *email, *pass); err != nil {
			fatalf("register/login: %v", err)
		}
	}
	logf(*verbose, "signed in: id=%s email=%s", u.ID, u.Email)

	me, err := c.Me(ctx)
	if err != nil {
		fatalf("me: %v", err)
	}
	if me.ID != u.ID {
		fatalf("me: id mismatch: got %s want %s", me.ID, u.ID)
	}

	if *wait > 0 {
		logf(*verbose, "waiting %s for access token expiry", *wait)
		time.Sleep(*wait)

		var g errgroup.Group
		for i := 0; i < *parallel; i++ {
			g.Go(func() error {
				_, err := c.Me(ctx)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			fatalf("concurrent me after expiry: %v", err)
		}
		logf(*verbose, "concurrent refresh ok (parallel=%d)", *parallel)
	}

	if err := c.Logout(ctx); err != nil {
		fatalf("logout: %v", err)
	}
	if _, err := c.Me(ctx); !authclient.IsUnauthorized(err) {
		fatalf("me after logout: want 401, got %v", err)
	}

	// Last: reuse detection revokes every session of the account.
	mustRotateAndDetectReuse(ctx, *baseURL, *email, *pass, *verbose)

	fmt.Printf("OK: id=%s email=%s\n", u.ID, u.Email)
}

// mustRotateAndDetectReuse signs in on a second client, copies its refresh
// cookie to a third, and checks that redeeming the same token twice is
// reported as reuse.
func mustRotateAndDetectReuse(ctx context.Context, baseURL, email, pass string, verbose bool) {
	a := mustClient(baseURL)
	if _, err := a.Login(ctx, email, pass); err != nil {
		fatalf("login (rotation client): %v", err)
	}
	b := mustClient(baseURL)
	if err := authclient.CopySession(b, a); err != nil {
		fatalf("copy session: %v", err)
	}

	if _, err := a.Refresh(ctx); err != nil {
		fatalf("refresh: %v", err)
	}
	if _, err := b.Refresh(ctx); !authclient.IsReuseDetected(err) {
		fatalf("replayed refresh: want reuse_detected, got %v", err)
	}
	if _, err := a.Refresh(ctx); !authclient.IsReuseDetected(err) {
		fatalf("refresh after reuse: want reuse_detected, got %v", err)
	}
	logf(verbose, "rotation + reuse detection ok")
}

func mustClient(baseURL string) *authclient.Client {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	c, err := authclient.New(baseURL)
	if err != nil {
		fatalf("client: %v", err)
	}
	return c
}

func logf(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
