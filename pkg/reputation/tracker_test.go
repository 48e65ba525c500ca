package reputation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rampartlabs/rampart/pkg/ledger"
	"github.com/rampartlabs/rampart/pkg/threat"
)

const (
	testWindow    = 5 * time.Minute
	testThreshold = 5
)

func appendThreat(t *testing.T, store ledger.Store, source string, age time.Duration) {
	t.Helper()
	ev := threat.NewEvent(threat.TypeSQLInjection, threat.SeverityHigh, source, true)
	ev.Timestamp = time.Now().UTC().Add(-age)
	if err := store.Append(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
}

func TestEscalationAtThreshold(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory(0)
	tr := New(store, testWindow, testThreshold)

	for i := 1; i <= testThreshold; i++ {
		appendThreat(t, store, "1.2.3.4", time.Second)
		newly := tr.EvaluateAndMaybeBlock(ctx, "1.2.3.4")
		switch {
		case i < testThreshold && newly:
			t.Errorf("append %d: blocked before threshold", i)
		case i < testThreshold && tr.IsBlocked(ctx, "1.2.3.4"):
			t.Errorf("append %d: IsBlocked true before threshold", i)
		case i == testThreshold && !newly:
			t.Errorf("append %d: expected transition into blocked", i)
		}
	}

	if !tr.IsBlocked(ctx, "1.2.3.4") {
		t.Error("source should be blocked at threshold")
	}

	// Transition fires exactly once: further evaluations while blocked
	// report false.
	appendThreat(t, store, "1.2.3.4", time.Second)
	if tr.EvaluateAndMaybeBlock(ctx, "1.2.3.4") {
		t.Error("transition should not re-fire while still blocked")
	}
}

func TestBlockingIsRecomputedNotLatched(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory(0)
	tr := New(store, testWindow, testThreshold)

	// Five events just inside the window edge.
	for i := 0; i < testThreshold; i++ {
		appendThreat(t, store, "5.6.7.8", testWindow-time.Second)
	}
	if !tr.IsBlocked(ctx, "5.6.7.8") {
		t.Fatal("source should be blocked")
	}

	// Once the window slides past the events, the source exits the
	// blocked state without operator action.
	time.Sleep(1100 * time.Millisecond)
	if tr.IsBlocked(ctx, "5.6.7.8") {
		t.Error("source should exit blocked state as the window slides")
	}

	// Re-escalation after exit fires the transition again.
	for i := 0; i < testThreshold; i++ {
		appendThreat(t, store, "5.6.7.8", time.Second)
	}
	if !tr.EvaluateAndMaybeBlock(ctx, "5.6.7.8") {
		t.Error("expected a fresh transition after window slide")
	}
}

func TestAllowlistAlwaysWins(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory(0)
	tr := New(store, testWindow, testThreshold)

	for i := 0; i < testThreshold*2; i++ {
		appendThreat(t, store, "9.9.9.9", time.Second)
	}
	if !tr.IsBlocked(ctx, "9.9.9.9") {
		t.Fatal("source should be blocked")
	}

	tr.Allowlist("9.9.9.9")
	if tr.IsBlocked(ctx, "9.9.9.9") {
		t.Error("allowlisted source must never report blocked")
	}
	if !tr.IsAllowlisted("9.9.9.9") {
		t.Error("allowlist membership lost")
	}
	if tr.EvaluateAndMaybeBlock(ctx, "9.9.9.9") {
		t.Error("allowlisted source must not transition to blocked")
	}

	// Idempotent.
	tr.Allowlist("9.9.9.9")
	if !tr.IsAllowlisted("9.9.9.9") {
		t.Error("repeated allowlisting should be a no-op")
	}

	// Removal restores derived state from the ledger.
	tr.RemoveAllowlist("9.9.9.9")
	if !tr.IsBlocked(ctx, "9.9.9.9") {
		t.Error("source should be blocked again after allowlist removal")
	}
}

func TestSourcesAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemory(0)
	tr := New(store, testWindow, testThreshold)

	for i := 0; i < testThreshold; i++ {
		appendThreat(t, store, "1.1.1.1", time.Second)
	}
	if tr.IsBlocked(ctx, "2.2.2.2") {
		t.Error("unrelated source should not be blocked")
	}
}

// failingStore errors on every query, for exercising the fail-closed path.
type failingStore struct {
	*ledger.Memory
	fail bool
}

func (f *failingStore) Query(ctx context.Context, source string, since time.Duration) ([]threat.Event, error) {
	if f.fail {
		return nil, errors.New("ledger unavailable")
	}
	return f.Memory.Query(ctx, source, since)
}

func TestLedgerFailureHonorsCachedBlock(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Memory: ledger.NewMemory(0)}
	tr := New(store, testWindow, testThreshold)

	for i := 0; i < testThreshold; i++ {
		appendThreat(t, store, "3.3.3.3", time.Second)
	}
	if !tr.IsBlocked(ctx, "3.3.3.3") {
		t.Fatal("source should be blocked")
	}

	// With the ledger down, an already-blocked source stays blocked and
	// an unknown source stays unblocked.
	store.fail = true
	if !tr.IsBlocked(ctx, "3.3.3.3") {
		t.Error("blocked source should stay blocked when the ledger is unavailable")
	}
	if tr.IsBlocked(ctx, "4.4.4.4") {
		t.Error("unknown source should not become blocked on ledger failure")
	}
}
