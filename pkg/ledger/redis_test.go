package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rampartlabs/rampart/pkg/threat"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "rampart_test", 0)
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	ev := threat.NewEvent(threat.TypeScriptInjection, threat.SeverityHigh, "1.2.3.4", true)
	if err := r.Append(ctx, ev); err != nil {
		t.Fatal(err)
	}

	got, err := r.Query(ctx, "1.2.3.4", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID != ev.ID || got[0].Type != ev.Type || got[0].Severity != ev.Severity {
		t.Errorf("event did not survive the round trip: %+v", got[0])
	}
	if !got[0].Blocked {
		t.Error("blocked flag lost")
	}
}

func TestRedisWindowFiltering(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	old := backdated(threat.TypeSQLInjection, "5.6.7.8", 10*time.Minute)
	recent := backdated(threat.TypeSQLInjection, "5.6.7.8", 30*time.Second)
	for _, ev := range []threat.Event{old, recent} {
		if err := r.Append(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	got, err := r.Query(ctx, "5.6.7.8", 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != recent.ID {
		t.Errorf("expected only the recent event, got %d", len(got))
	}

	all, err := r.All(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected both events inside the hour, got %d", len(all))
	}
	if len(all) == 2 && !all[0].Timestamp.Before(all[1].Timestamp) {
		t.Error("expected oldest-first ordering")
	}
}

func TestRedisSourceIsolation(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	if err := r.Append(ctx, backdated(threat.TypeFlood, "1.1.1.1", time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := r.Append(ctx, backdated(threat.TypeFlood, "2.2.2.2", time.Second)); err != nil {
		t.Fatal(err)
	}

	got, err := r.Query(ctx, "1.1.1.1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Source != "1.1.1.1" {
		t.Errorf("per-source query leaked other sources: %+v", got)
	}
}
