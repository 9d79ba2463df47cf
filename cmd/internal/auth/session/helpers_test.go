package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jotter/cmd/security/token"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte(testAccessSecret)
	cfg.RefreshSecret = []byte(testRefreshSecret)
	return cfg
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testConfig())
	require.NoError(t, err)
	return c
}

// fakeIdentities is an in-memory IdentityResolver.
type fakeIdentities struct {
	mu   sync.Mutex
	byID map[string]Identity
	err  error
}

func newFakeIdentities(ids ...Identity) *fakeIdentities {
	f := &fakeIdentities{byID: map[string]Identity{}}
	for _, id := range ids {
		f.byID[id.ID] = id
	}
	return f
}

func (f *fakeIdentities) ResolveIdentity(_ context.Context, id string) (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Identity{}, f.err
	}
	ident, ok := f.byID[id]
	if !ok {
		return Identity{}, ErrUnknownIdentity
	}
	return ident, nil
}

func (f *fakeIdentities) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

var testIdent = Identity{
	ID:        "01J0000000000000000000000A",
	Email:     "ada@example.com",
	Name:      "Ada",
	IsAdmin:   true,
	CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
}

func newTestService(t *testing.T, ledger Ledger) (*Service, *fakeIdentities) {
	t.Helper()
	ids := newFakeIdentities(testIdent)
	svc, err := NewService(testConfig(), ledger, ids, token.NewHasher([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)
	return svc, ids
}
