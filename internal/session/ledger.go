package session

import "maps"

// Ledger maps 1-based question ordinals to chosen labels. A missing key
// means unanswered. The ledger does not check labels; the machine feeding
// it does.
type Ledger struct {
	answers map[int]string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{answers: make(map[int]string)}
}

// LedgerFrom returns a ledger holding a copy of answers.
func LedgerFrom(answers map[int]string) *Ledger {
	l := NewLedger()
	maps.Copy(l.answers, answers)
	return l
}

// Set inserts or overwrites the answer for ordinal.
func (l *Ledger) Set(ordinal int, choice string) {
	if l.answers == nil {
		l.answers = make(map[int]string)
	}
	l.answers[ordinal] = choice
}

// Get returns the answer for ordinal.
func (l *Ledger) Get(ordinal int) (string, bool) {
	c, ok := l.answers[ordinal]
	return c, ok
}

// IsComplete reports whether every ordinal 1..total has an answer.
func (l *Ledger) IsComplete(total int) bool {
	for i := 1; i <= total; i++ {
		if _, ok := l.answers[i]; !ok {
			return false
		}
	}
	return true
}

// CompletedCount returns the number of answered ordinals.
func (l *Ledger) CompletedCount() int {
	return len(l.answers)
}

// Snapshot returns a copy of the answers.
func (l *Ledger) Snapshot() map[int]string {
	return maps.Clone(l.answers)
}
