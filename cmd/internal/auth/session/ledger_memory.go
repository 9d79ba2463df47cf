package session

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is a process-local Ledger. It is only correct for a single
// server process.
type MemoryLedger struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]Entry
}

// NewMemoryLedger returns an empty MemoryLedger. Capacity outside
// [1, MaxLedgerCapacity] falls back to the nearest bound or the default.
func NewMemoryLedger(capacity int) *MemoryLedger {
	return &MemoryLedger{
		capacity: clampCapacity(capacity),
		entries:  make(map[string][]Entry),
	}
}

func (l *MemoryLedger) Append(ctx context.Context, identityID, digest string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pushLocked(identityID, digest, now)
	return nil
}

func (l *MemoryLedger) Contains(ctx context.Context, identityID, digest string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return indexOf(l.entries[identityID], digest) >= 0, nil
}

func (l *MemoryLedger) Remove(ctx context.Context, identityID, digest string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.removeLocked(identityID, digest), nil
}

func (l *MemoryLedger) ClearAll(ctx context.Context, identityID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, identityID)
	return nil
}

func (l *MemoryLedger) Redeem(ctx context.Context, identityID, oldDigest, newDigest string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.removeLocked(identityID, oldDigest) {
		return false, nil
	}
	l.pushLocked(identityID, newDigest, now)
	return true, nil
}

func (l *MemoryLedger) Entries(ctx context.Context, identityID string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Entry(nil), l.entries[identityID]...), nil
}

func (l *MemoryLedger) pushLocked(identityID, digest string, now time.Time) {
	cur := l.entries[identityID]
	if indexOf(cur, digest) >= 0 {
		return
	}
	cur = append(cur, Entry{Digest: digest, CreatedAt: now.UTC()})
	if over := len(cur) - l.capacity; over > 0 {
		cur = append([]Entry(nil), cur[over:]...)
	}
	l.entries[identityID] = cur
}

func (l *MemoryLedger) removeLocked(identityID, digest string) bool {
	cur := l.entries[identityID]
	i := indexOf(cur, digest)
	if i < 0 {
		return false
	}
	cur = append(cur[:i:i], cur[i+1:]...)
	if len(cur) == 0 {
		delete(l.entries, identityID)
	} else {
		l.entries[identityID] = cur
	}
	return true
}

func indexOf(entries []Entry, digest string) int {
	for i, e := range entries {
		if e.Digest == digest {
			return i
		}
	}
	return -1
}
