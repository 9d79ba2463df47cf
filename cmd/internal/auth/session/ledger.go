package session

import (
	"context"
	"time"
)

// Entry is one outstanding refresh token in a ledger.
type Entry struct {
	Digest    string
	CreatedAt time.Time
}

// Ledger is the per-identity ordered set of outstanding refresh-token digests.
//
// Every mutation is atomic with respect to concurrent mutations for the same
// identity. Append and Redeem evict the oldest entries once the ledger holds
// more than its capacity.
type Ledger interface {
	// Append inserts digest as the newest entry. Appending a digest that is
	// already present is a no-op.
	Append(ctx context.Context, identityID, digest string, now time.Time) error

	Contains(ctx context.Context, identityID, digest string) (bool, error)

	// Remove deletes digest and reports whether it was present.
	Remove(ctx context.Context, identityID, digest string) (bool, error)

	ClearAll(ctx context.Context, identityID string) error

	// Redeem removes oldDigest and appends newDigest as one step. If oldDigest
	// is absent nothing changes and Redeem returns false. Of any number of
	// concurrent Redeem calls for the same oldDigest at most one returns true.
	Redeem(ctx context.Context, identityID, oldDigest, newDigest string, now time.Time) (bool, error)

	// Entries lists entries oldest first.
	Entries(ctx context.Context, identityID string) ([]Entry, error)
}

func clampCapacity(n int) int {
	switch {
	case n < 1:
		return DefaultLedgerCapacity
	case n > MaxLedgerCapacity:
		return MaxLedgerCapacity
	default:
		return n
	}
}
