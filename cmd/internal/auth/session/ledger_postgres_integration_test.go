package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jotter/cmd/internal/pgtest"
)

// Integration tests are opt-in and require JOTTER_DATABASE_URL.

func TestPostgresLedger(t *testing.T) {
	pool := pgtest.Open(t)

	runLedgerSuite(t, func(t *testing.T, capacity int) Ledger {
		l, err := NewPostgresLedger(pool,
			WithLedgerSchema(pgtest.Schema(t, pool)),
			WithLedgerCapacity(capacity),
		)
		require.NoError(t, err)
		return l
	})
}

func TestPostgresService_ConcurrentRotate(t *testing.T) {
	pool := pgtest.Open(t)
	l, err := NewPostgresLedger(pool, WithLedgerSchema(pgtest.Schema(t, pool)))
	require.NoError(t, err)

	runConcurrentRotate(t, l)
}

func TestNewPostgresLedger_Validation(t *testing.T) {
	_, err := NewPostgresLedger(nil)
	require.Error(t, err)
	require.Error(t, WithLedgerSchema("drop table;")(&PostgresLedger{}))
	require.ErrorIs(t, WithLedgerCapacity(0)(&PostgresLedger{}), ErrConfig)
}
