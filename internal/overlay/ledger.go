package overlay

import (
	"sync"
	"time"
)

type ledgerEntry struct {
	predecessor string
	timer       *time.Timer
}

// Ledger maps an in-flight search identifier to the address its request
// arrived from. Entries are only removed by expiry, never on success, so a
// relay can still route a reply that arrives late.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*ledgerEntry
	expiry  time.Duration
	closed  bool
}

func NewLedger(expiry time.Duration) *Ledger {
	return &Ledger{
		entries: make(map[string]*ledgerEntry),
		expiry:  expiry,
	}
}

// RecordIfNew registers id -> predecessor when id is unknown and schedules
// its removal. Exactly one of several concurrent callers for the same id
// observes true.
func (l *Ledger) RecordIfNew(id, predecessor string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	if _, exists := l.entries[id]; exists {
		return false
	}

	entry := &ledgerEntry{predecessor: predecessor}
	entry.timer = time.AfterFunc(l.expiry, func() { l.expire(id, entry) })
	l.entries[id] = entry
	return true
}

func (l *Ledger) PredecessorOf(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[id]
	if !exists {
		return "", false
	}
	return entry.predecessor, true
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops all pending expiry timers and rejects further records.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, entry := range l.entries {
		entry.timer.Stop()
		delete(l.entries, id)
	}
	l.closed = true
}

// expire only removes the entry it was scheduled for.
func (l *Ledger) expire(id string, entry *ledgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.entries[id] == entry {
		delete(l.entries, id)
	}
}
