// Package risk aggregates recent ledger entries into a single normalized
// score. The scale is intentionally a simple linear-saturating sum of
// severity weights, not a calibrated statistical model: it exists to
// rank "how noisy is the last day" for operators, nothing more.
package risk

import (
	"context"
	"time"

	"github.com/rampartlabs/rampart/pkg/ledger"
)

// Level is the discrete operational risk band.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Scorer computes scores over the ledger.
type Scorer struct {
	store ledger.Store
}

// NewScorer creates a scorer reading from store.
func NewScorer(store ledger.Store) *Scorer {
	return &Scorer{store: store}
}

// Score sums severity weights over all events inside the trailing
// window and normalizes to [0,100] via min(100, 2*total). Monotonically
// non-decreasing as events of the same or higher severity accumulate
// inside the window; events outside the window never contribute.
func (s *Scorer) Score(ctx context.Context, window time.Duration) (float64, error) {
	events, err := s.store.All(ctx, window)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, ev := range events {
		total += ev.Severity.Weight()
	}

	score := float64(total) * 2
	if score > 100 {
		score = 100
	}
	return score, nil
}

// Level computes the score over the window and maps it to a band.
func (s *Scorer) Level(ctx context.Context, window time.Duration) (Level, error) {
	score, err := s.Score(ctx, window)
	if err != nil {
		return LevelLow, err
	}
	return LevelFor(score), nil
}

// LevelFor maps a score to its band: >70 CRITICAL, >50 HIGH, >25 MEDIUM,
// else LOW.
func LevelFor(score float64) Level {
	switch {
	case score > 70:
		return LevelCritical
	case score > 50:
		return LevelHigh
	case score > 25:
		return LevelMedium
	default:
		return LevelLow
	}
}
