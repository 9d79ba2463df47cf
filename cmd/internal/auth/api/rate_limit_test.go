package authapi

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimit_BurstThenRetryAfter(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RatePerMinute = 6
		c.RateBurst = 2
	})

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/auth/login", loginRequest{Email: "nobody@example.com", Password: "whatever1"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := env.do(http.MethodPost, "/auth/login", loginRequest{Email: "nobody@example.com", Password: "whatever1"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limited", errorCode(t, rec))
	secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.InDelta(t, 10, secs, 1)

	// The bucket refills with the handler clock.
	env.now = env.now.Add(11 * time.Second)
	rec = env.do(http.MethodPost, "/auth/login", loginRequest{Email: "nobody@example.com", Password: "whatever1"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit_LogoutIsNotLimited(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RatePerMinute = 1
		c.RateBurst = 1
	})
	for i := 0; i < 3; i++ {
		rec := env.do(http.MethodPost, "/auth/logout", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestIPLimiter_SeparateBucketsPerIP(t *testing.T) {
	l, err := newIPLimiter(60, 1, 8)
	require.NoError(t, err)

	a := net.ParseIP("192.0.2.1")
	b := net.ParseIP("192.0.2.2")

	ok, _ := l.allow(a, t0)
	require.True(t, ok)
	ok, wait := l.allow(a, t0)
	require.False(t, ok)
	require.Equal(t, time.Second, wait)
	ok, _ = l.allow(b, t0)
	require.True(t, ok)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remote     string
		xff        string
		xRealIP    string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "198.51.100.7:1234", want: "198.51.100.7"},
		{name: "xff ignored without trust", remote: "198.51.100.7:1234", xff: "203.0.113.9", want: "198.51.100.7"},
		{name: "xff leftmost valid", remote: "198.51.100.7:1234", xff: "bogus, 203.0.113.9, 10.0.0.1", trustProxy: true, want: "203.0.113.9"},
		{name: "x-real-ip fallback", remote: "198.51.100.7:1234", xRealIP: "203.0.113.20", trustProxy: true, want: "203.0.113.20"},
		{name: "unparseable remote", remote: "not-an-addr", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xRealIP != "" {
				r.Header.Set("X-Real-IP", tc.xRealIP)
			}
			require.Equal(t, tc.want, ipString(clientIP(r, tc.trustProxy)))
		})
	}
}
