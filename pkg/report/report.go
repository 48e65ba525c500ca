// Package report produces point-in-time operational summaries from the
// threat ledger and risk scorer. Generation is a pure read: safe to run
// concurrently with ongoing request evaluation, no side effects.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/rampartlabs/rampart/pkg/ledger"
	"github.com/rampartlabs/rampart/pkg/risk"
	"github.com/rampartlabs/rampart/pkg/threat"
)

// maxTopTypes bounds the top-threat-types list.
const maxTopTypes = 5

// TypeCount is one entry of the top-threat-types ranking.
type TypeCount struct {
	Type  threat.Type `json:"type"`
	Count int         `json:"count"`
}

// Report is the summary handed to the operational reporting layer. It is
// never echoed to end users.
type Report struct {
	GeneratedAt     time.Time   `json:"generated_at"`
	Window          string      `json:"window"`
	TotalThreats    int         `json:"total_threats"`
	BlockedThreats  int         `json:"blocked_threats"`
	TopThreatTypes  []TypeCount `json:"top_threat_types"`
	RiskScore       float64     `json:"risk_score"`
	RiskLevel       risk.Level  `json:"risk_level"`
	Recommendations []string    `json:"recommendations"`
}

// Generator builds reports over a fixed scoring window.
type Generator struct {
	store  ledger.Store
	scorer *risk.Scorer
	window time.Duration
}

// NewGenerator creates a generator reading from store over window.
func NewGenerator(store ledger.Store, scorer *risk.Scorer, window time.Duration) *Generator {
	return &Generator{store: store, scorer: scorer, window: window}
}

// Generate summarizes the trailing window: event counts, the top threat
// types (descending frequency, ties broken most-recent-first), the risk
// score and level, and a static advisory list.
func (g *Generator) Generate(ctx context.Context) (Report, error) {
	events, err := g.store.All(ctx, g.window)
	if err != nil {
		return Report{}, err
	}

	counts := make(map[threat.Type]int)
	lastSeen := make(map[threat.Type]time.Time)
	blocked := 0
	for _, ev := range events {
		counts[ev.Type]++
		if ev.Timestamp.After(lastSeen[ev.Type]) {
			lastSeen[ev.Type] = ev.Timestamp
		}
		if ev.Blocked {
			blocked++
		}
	}

	top := make([]TypeCount, 0, len(counts))
	for typ, n := range counts {
		top = append(top, TypeCount{Type: typ, Count: n})
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return lastSeen[top[i].Type].After(lastSeen[top[j].Type])
	})
	if len(top) > maxTopTypes {
		top = top[:maxTopTypes]
	}

	score, err := g.scorer.Score(ctx, g.window)
	if err != nil {
		return Report{}, err
	}
	level := risk.LevelFor(score)

	return Report{
		GeneratedAt:     time.Now().UTC(),
		Window:          g.window.String(),
		TotalThreats:    len(events),
		BlockedThreats:  blocked,
		TopThreatTypes:  top,
		RiskScore:       score,
		RiskLevel:       level,
		Recommendations: recommendations(level),
	}, nil
}

// recommendations is the static advisory list, with escalation advice
// appended at the higher bands.
func recommendations(level risk.Level) []string {
	recs := []string{
		"Keep signature rules current; review the rule file against recent ledger entries.",
		"Verify allowlist entries still belong to trusted operators.",
		"Confirm upstream middleware forwards the real client address as the source identifier.",
	}
	switch level {
	case risk.LevelHigh:
		recs = append(recs, "Elevated activity: review top threat types and consider tightening the escalation threshold.")
	case risk.LevelCritical:
		recs = append(recs,
			"Sustained attack traffic: consider upstream rate limiting for the top offending sources.",
			"Preserve the current ledger for incident review before any process restart.")
	}
	return recs
}
