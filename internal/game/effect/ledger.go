package effect

import (
	"context"
	"sync"
	"time"
)

// Ledger is the shared shape of the two effect stores: the per-encounter
// ledger owned by an Encounter record, and the per-player ledger persisted in
// temporary_effects. Same-attribute entries stack additively; ListActive
// returns rows in insertion order (the damage pipeline applies modifiers in
// ledger order).
type Ledger interface {
	// Apply inserts a row. It never merges with an existing row.
	Apply(ctx context.Context, e Effect) error
	// ListActive returns the target's rows where start + duration > now,
	// in insertion order.
	ListActive(ctx context.Context, target Target) ([]Effect, error)
	// PurgeExpired deletes the target's rows where the activity inequality
	// fails.
	PurgeExpired(ctx context.Context, target Target) error
}

// MemoryLedger is an in-memory Ledger. It backs the per-encounter effect
// store; access is serialized internally so callers inside and outside the
// encounter action lock are both safe.
type MemoryLedger struct {
	mu      sync.Mutex
	entries []Effect
	now     func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger using the wall clock.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{now: time.Now}
}

// NewMemoryLedgerAt creates a ledger with an injected clock, for tests.
//
// Precondition: now must be non-nil.
func NewMemoryLedgerAt(now func() time.Time) *MemoryLedger {
	return &MemoryLedger{now: now}
}

// Apply inserts a row.
//
// Postcondition: the row is visible to ListActive until it expires.
func (l *MemoryLedger) Apply(_ context.Context, e Effect) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

// ListActive returns the target's unexpired rows in insertion order.
func (l *MemoryLedger) ListActive(_ context.Context, target Target) ([]Effect, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	var out []Effect
	for _, e := range l.entries {
		if e.Target == target && e.ActiveAt(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

// PurgeExpired removes the target's expired rows.
//
// Postcondition: every remaining row for target satisfies ActiveAt(now).
func (l *MemoryLedger) PurgeExpired(_ context.Context, target Target) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Target == target && !e.ActiveAt(now) {
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return nil
}
