package session

import "testing"

func TestMemoryLedger(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T, capacity int) Ledger {
		return NewMemoryLedger(capacity)
	})
}

func TestClampCapacity(t *testing.T) {
	cases := map[int]int{0: DefaultLedgerCapacity, -1: DefaultLedgerCapacity, 1: 1, 10: 10, 500: MaxLedgerCapacity}
	for in, want := range cases {
		if got := clampCapacity(in); got != want {
			t.Fatalf("clampCapacity(%d) = %d, want %d", in, got, want)
		}
	}
}
