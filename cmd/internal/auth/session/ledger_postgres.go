package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger stores refresh-token digests in <schema>.refresh_ledger.
//
// Each mutation runs in one transaction that first takes a transaction-scoped
// advisory lock keyed on the identity, so mutations for one identity are
// serialised across every process sharing the database.
type PostgresLedger struct {
	pool     *pgxpool.Pool
	schema   string
	capacity int
}

// PostgresLedgerOption configures a PostgresLedger.
type PostgresLedgerOption func(*PostgresLedger) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithLedgerSchema sets the schema holding refresh_ledger (default "jotter").
func WithLedgerSchema(schema string) PostgresLedgerOption {
	return func(l *PostgresLedger) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier")
		}
		l.schema = schema
		return nil
	}
}

// WithLedgerCapacity sets the per-identity capacity.
func WithLedgerCapacity(n int) PostgresLedgerOption {
	return func(l *PostgresLedger) error {
		if n < 1 || n > MaxLedgerCapacity {
			return ErrConfig
		}
		l.capacity = n
		return nil
	}
}

// NewPostgresLedger constructs a PostgresLedger. The pool is owned by the caller.
func NewPostgresLedger(pool *pgxpool.Pool, opts ...PostgresLedgerOption) (*PostgresLedger, error) {
	l := &PostgresLedger{
		pool:     pool,
		schema:   "jotter",
		capacity: DefaultLedgerCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return l, nil
}

func (l *PostgresLedger) table() string {
	return pgx.Identifier{l.schema, "refresh_ledger"}.Sanitize()
}

// withIdentityLock runs fn inside a transaction holding the identity's advisory lock.
func (l *PostgresLedger) withIdentityLock(ctx context.Context, identityID string, fn func(pgx.Tx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "refresh_ledger:"+identityID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (l *PostgresLedger) Append(ctx context.Context, identityID, digest string, now time.Time) error {
	return l.withIdentityLock(ctx, identityID, func(tx pgx.Tx) error {
		return l.pushTx(ctx, tx, identityID, digest, now)
	})
}

func (l *PostgresLedger) Contains(ctx context.Context, identityID, digest string) (bool, error) {
	var ok bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+l.table()+` WHERE identity_id = $1 AND token_digest = $2)`,
		identityID, digest,
	).Scan(&ok)
	return ok, err
}

func (l *PostgresLedger) Remove(ctx context.Context, identityID, digest string) (bool, error) {
	var removed bool
	err := l.withIdentityLock(ctx, identityID, func(tx pgx.Tx) error {
		var err error
		removed, err = l.deleteTx(ctx, tx, identityID, digest)
		return err
	})
	return removed, err
}

func (l *PostgresLedger) ClearAll(ctx context.Context, identityID string) error {
	return l.withIdentityLock(ctx, identityID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM `+l.table()+` WHERE identity_id = $1`, identityID)
		return err
	})
}

func (l *PostgresLedger) Redeem(ctx context.Context, identityID, oldDigest, newDigest string, now time.Time) (bool, error) {
	var redeemed bool
	err := l.withIdentityLock(ctx, identityID, func(tx pgx.Tx) error {
		ok, err := l.deleteTx(ctx, tx, identityID, oldDigest)
		if err != nil || !ok {
			return err
		}
		if err := l.pushTx(ctx, tx, identityID, newDigest, now); err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return redeemed, nil
}

func (l *PostgresLedger) Entries(ctx context.Context, identityID string) ([]Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT token_digest, created_at FROM `+l.table()+`
		  WHERE identity_id = $1
		  ORDER BY seq`,
		identityID,
	)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.Digest, &e.CreatedAt)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// deleteTx removes one entry; DELETE ... RETURNING decides whether this caller removed it.
func (l *PostgresLedger) deleteTx(ctx context.Context, tx pgx.Tx, identityID, digest string) (bool, error) {
	var seq int64
	err := tx.QueryRow(ctx,
		`DELETE FROM `+l.table()+`
		  WHERE identity_id = $1 AND token_digest = $2
		  RETURNING seq`,
		identityID, digest,
	).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// pushTx inserts digest (if new) and evicts everything past capacity, oldest first.
func (l *PostgresLedger) pushTx(ctx context.Context, tx pgx.Tx, identityID, digest string, now time.Time) error {
	t := l.table()

	if _, err := tx.Exec(ctx,
		`INSERT INTO `+t+` (identity_id, token_digest, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identity_id, token_digest) DO NOTHING`,
		identityID, digest, now.UTC(),
	); err != nil {
		return err
	}

	_, err := tx.Exec(ctx,
		`DELETE FROM `+t+`
		  WHERE identity_id = $1
		    AND seq IN (
		      SELECT seq FROM `+t+`
		       WHERE identity_id = $1
		       ORDER BY seq DESC
		      OFFSET $2
		    )`,
		identityID, l.capacity,
	)
	return err
}
