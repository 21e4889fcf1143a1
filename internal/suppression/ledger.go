// Package suppression tracks message ids the bot deleted itself, so their
// deletion notifications are not treated as user deletions.
package suppression

import (
	"sync"
	"time"
)

// DefaultWindow is how long a bot-initiated deletion is remembered.
const DefaultWindow = 5 * time.Minute

// Ledger is a short-lived set of suppressed message ids.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]time.Time // messageID -> expiresAt
	window  time.Duration
	now     func() time.Time
}

// NewLedger creates a ledger. A non-positive window uses DefaultWindow.
func NewLedger(window time.Duration) *Ledger {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ledger{
		entries: make(map[string]time.Time),
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces time.Now, for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// MarkSuppressed records messageID. Call it before issuing the delete so the
// platform's notification can never arrive first.
func (l *Ledger) MarkSuppressed(messageID string) {
	if messageID == "" {
		return
	}
	l.mu.Lock()
	l.entries[messageID] = l.now().Add(l.window)
	l.mu.Unlock()
}

// IsSuppressed reports whether messageID was marked within the window.
// Expired entries are dropped on read.
func (l *Ledger) IsSuppressed(messageID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, ok := l.entries[messageID]
	if !ok {
		return false
	}
	if !l.now().Before(expiresAt) {
		delete(l.entries, messageID)
		return false
	}
	return true
}

// Sweep drops every entry that has expired at now.
func (l *Ledger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked ids.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear forgets every id.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.entries = make(map[string]time.Time)
	l.mu.Unlock()
}
