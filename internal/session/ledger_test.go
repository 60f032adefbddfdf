package session

import (
	"math/rand/v2"
	"testing"
)

func TestLedger_SetOverwrites(t *testing.T) {
	l := NewLedger()
	l.Set(1, "A")
	l.Set(1, "C")
	if got, _ := l.Get(1); got != "C" {
		t.Errorf("Get(1) = %q, want C", got)
	}
	if l.CompletedCount() != 1 {
		t.Errorf("CompletedCount() = %d, want 1", l.CompletedCount())
	}
}

func TestLedger_IsComplete(t *testing.T) {
	l := NewLedger()
	if !l.IsComplete(0) {
		t.Error("empty ledger should be complete for zero questions")
	}
	l.Set(1, "A")
	l.Set(3, "B")
	if l.IsComplete(3) {
		t.Error("IsComplete(3) = true with ordinal 2 missing")
	}
	l.Set(2, "D")
	if !l.IsComplete(3) {
		t.Error("IsComplete(3) = false with all three answered")
	}
}

func TestLedger_SnapshotIsCopy(t *testing.T) {
	src := map[int]string{1: "A"}
	l := LedgerFrom(src)
	src[2] = "B"
	if l.CompletedCount() != 1 {
		t.Error("LedgerFrom aliased its input")
	}
	snap := l.Snapshot()
	snap[5] = "D"
	if _, ok := l.Get(5); ok {
		t.Error("Snapshot aliased the ledger")
	}
}

// Any sequence of sets leaves the ledger complete for n exactly when every
// ordinal 1..n was set at least once, and the count equals the number of
// distinct ordinals set.
func TestLedger_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(8)
		l := NewLedger()
		seen := map[int]bool{}
		for i := 0; i < rng.IntN(20); i++ {
			ord := 1 + rng.IntN(n)
			l.Set(ord, []string{"A", "B", "C", "D"}[rng.IntN(4)])
			seen[ord] = true
		}
		if got, want := l.CompletedCount(), len(seen); got != want {
			t.Fatalf("round %d: CompletedCount() = %d, want %d", round, got, want)
		}
		if got, want := l.IsComplete(n), len(seen) == n; got != want {
			t.Fatalf("round %d: IsComplete(%d) = %v, want %v", round, n, got, want)
		}
	}
}
