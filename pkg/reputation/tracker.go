// Package reputation derives blocklist state for source identifiers from
// the threat ledger. Blocking is recomputed, not latched: a source is
// blocked exactly while its recent event count inside the escalation
// window meets the threshold, and exits the blocked state once the
// window slides past its events. An operator allowlist always wins.
package reputation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rampartlabs/rampart/pkg/ledger"
)

// Tracker evaluates per-source reputation against the ledger.
type Tracker struct {
	store     ledger.Store
	window    time.Duration
	threshold int

	mu        sync.Mutex
	allowlist map[string]struct{}
	// blocked caches which sources the last evaluation saw as blocked,
	// purely to detect the transition edge for alerting. Authoritative
	// state always comes from the ledger; on a ledger read failure the
	// cache answers, so an already-blocked source stays blocked (fail
	// closed on the reputation path).
	blocked map[string]struct{}
}

// New creates a tracker. window is the trailing escalation span and
// threshold the event count at which a source transitions to blocked.
func New(store ledger.Store, window time.Duration, threshold int) *Tracker {
	return &Tracker{
		store:     store,
		window:    window,
		threshold: threshold,
		allowlist: make(map[string]struct{}),
		blocked:   make(map[string]struct{}),
	}
}

// Allowlist marks a source as an operator-approved override. Idempotent.
// An allowlisted source is never reported blocked, regardless of ledger
// contents, until the entry is removed.
func (t *Tracker) Allowlist(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowlist[source] = struct{}{}
}

// RemoveAllowlist drops the operator override for a source. Idempotent.
func (t *Tracker) RemoveAllowlist(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.allowlist, source)
}

// IsAllowlisted reports whether the source has an operator override.
func (t *Tracker) IsAllowlisted(source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.allowlist[source]
	return ok
}

// IsBlocked recomputes the source's state from the ledger.
func (t *Tracker) IsBlocked(ctx context.Context, source string) bool {
	blocked, _ := t.evaluate(ctx, source)
	return blocked
}

// EvaluateAndMaybeBlock re-derives the source's state after an event
// append. It returns true exactly once per transition into the blocked
// state, so callers can alert on "just blocked" without re-firing while
// the source stays blocked.
func (t *Tracker) EvaluateAndMaybeBlock(ctx context.Context, source string) bool {
	_, newlyBlocked := t.evaluate(ctx, source)
	return newlyBlocked
}

// evaluate returns (blocked now, transitioned into blocked on this call).
func (t *Tracker) evaluate(ctx context.Context, source string) (bool, bool) {
	if t.IsAllowlisted(source) {
		t.mu.Lock()
		delete(t.blocked, source)
		t.mu.Unlock()
		return false, false
	}

	events, err := t.store.Query(ctx, source, t.window)
	if err != nil {
		log.Printf("[REPUTATION] ledger query failed for %s, honoring cached state: %v", source, err)
		t.mu.Lock()
		_, was := t.blocked[source]
		t.mu.Unlock()
		return was, false
	}

	blocked := len(events) >= t.threshold

	t.mu.Lock()
	defer t.mu.Unlock()
	_, was := t.blocked[source]
	if blocked && !was {
		t.blocked[source] = struct{}{}
		return true, true
	}
	if !blocked && was {
		delete(t.blocked, source)
	}
	return blocked, false
}
