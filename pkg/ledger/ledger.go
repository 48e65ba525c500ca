// Package ledger holds the append-only, time-ordered record of observed
// threat events. The ledger is the single source of truth: reputation
// and risk state are always recomputed from its contents, never stored
// on the side, which keeps derived state replayable in tests.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/rampartlabs/rampart/pkg/threat"
)

// Store is the ledger contract. Results are ordered oldest-first for
// deterministic replay. Implementations must be safe for concurrent
// appends and reads; a read started before an append may or may not
// observe it, but never observes a torn event.
type Store interface {
	// Append records an event. Events are immutable once appended.
	Append(ctx context.Context, ev threat.Event) error
	// Query returns events for one source with Timestamp >= now-since.
	Query(ctx context.Context, source string, since time.Duration) ([]threat.Event, error)
	// All returns every event with Timestamp >= now-since.
	All(ctx context.Context, since time.Duration) ([]threat.Event, error)
}

// Memory is the in-process ledger: a lock-protected append-only slice.
// Reads copy the matching events out, so callers hold a stable snapshot
// while new appends continue.
type Memory struct {
	mu        sync.RWMutex
	events    []threat.Event
	retention time.Duration
}

// NewMemory creates an in-memory ledger. retention bounds how long
// events are kept; zero keeps everything for the process lifetime.
func NewMemory(retention time.Duration) *Memory {
	return &Memory{retention: retention}
}

// Append records an event. O(1) amortized; when a retention window is
// configured, aged events are pruned from the head on the way in.
func (m *Memory) Append(_ context.Context, ev threat.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.retention > 0 {
		cutoff := time.Now().Add(-m.retention)
		drop := 0
		for drop < len(m.events) && m.events[drop].Timestamp.Before(cutoff) {
			drop++
		}
		if drop > 0 {
			m.events = append([]threat.Event(nil), m.events[drop:]...)
		}
	}

	m.events = append(m.events, ev)
	return nil
}

// Query returns this source's events inside the trailing window,
// oldest-first.
func (m *Memory) Query(_ context.Context, source string, since time.Duration) ([]threat.Event, error) {
	cutoff := time.Now().Add(-since)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]threat.Event, 0, 8)
	for _, ev := range m.events {
		if ev.Source == source && !ev.Timestamp.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// All returns every event inside the trailing window, oldest-first.
func (m *Memory) All(_ context.Context, since time.Duration) ([]threat.Event, error) {
	cutoff := time.Now().Add(-since)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]threat.Event, 0, len(m.events))
	for _, ev := range m.events {
		if !ev.Timestamp.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Len returns the number of retained events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
