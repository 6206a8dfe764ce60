package journal

import "sync"

// Ledger keeps the most recent entries in memory for the dashboard history view.
type Ledger struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewLedger creates an empty ledger. A positive limit caps retained entries, oldest dropped first.
func NewLedger(limit int) *Ledger {
	if limit < 0 {
		limit = 0
	}
	return &Ledger{limit: limit, entries: make([]Entry, 0, limit)}
}

// Record appends an entry to the ledger.
func (l *Ledger) Record(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = append(l.entries[:0], l.entries[len(l.entries)-l.limit:]...)
	}
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded entries, newest last.
func (l *Ledger) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset clears all stored entries.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()
}
