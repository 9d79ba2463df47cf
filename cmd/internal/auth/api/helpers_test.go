package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"jotter/cmd/identity"
	"jotter/cmd/internal/auth/session"
	"jotter/cmd/security/password"
	"jotter/cmd/security/token"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	h      *Handler
	mux    *http.ServeMux
	store  *identity.MemoryStore
	ledger *session.MemoryLedger
	reg    *prometheus.Registry
	now    time.Time
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	cfg := DefaultConfig()
	cfg.RatePerMinute = 0
	for _, m := range mutate {
		m(&cfg)
	}

	pw, err := identity.NewPasswords(password.FastConfig())
	require.NoError(t, err)
	store := identity.NewMemoryStore()
	users := identity.NewService(store, pw)

	scfg := session.DefaultConfig()
	scfg.AccessSecret = bytes.Repeat([]byte("a"), 32)
	scfg.RefreshSecret = bytes.Repeat([]byte("r"), 32)
	ledger := session.NewMemoryLedger(scfg.LedgerCapacity)
	sessions, err := session.NewService(scfg, ledger, IdentityResolver(store), token.NewHasher([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)

	env := &testEnv{store: store, ledger: ledger, reg: prometheus.NewRegistry(), now: t0}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.h, err = NewHandler(log, cfg, users, sessions,
		WithMetrics(NewMetrics(env.reg)),
		WithClock(func() time.Time { return env.now }),
	)
	require.NoError(t, err)

	env.mux = http.NewServeMux()
	env.h.Register(env.mux)
	return env
}

func (e *testEnv) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "192.0.2.10:40000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email string) (SessionResponse, map[string]*http.Cookie) {
	t.Helper()
	rec := e.do(http.MethodPost, "/auth/register", registerRequest{Email: email, Password: "correct horse", Name: "Ada"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out, cookiesOf(rec)
}

func (e *testEnv) entries(t *testing.T, id string) []session.Entry {
	t.Helper()
	got, err := e.ledger.Entries(context.Background(), id)
	require.NoError(t, err)
	return got
}

func cookiesOf(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Error
}

func requireCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	c := cookiesOf(rec)
	for _, name := range []string{"jotter_access", "jotter_refresh"} {
		require.Contains(t, c, name)
		require.Empty(t, c[name].Value)
		require.Equal(t, -1, c[name].MaxAge)
	}
}
