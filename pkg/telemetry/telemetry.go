// Package telemetry tracks gateway decision counters. In-process atomic
// counters only; they feed the health endpoint and reports.
package telemetry

import "sync/atomic"

// Counters accumulates per-decision totals for the process lifetime.
// All methods are safe for concurrent use and tolerate a nil receiver,
// so callers that do not care about telemetry can pass nil.
type Counters struct {
	evaluated        atomic.Int64
	allowed          atomic.Int64
	deniedReputation atomic.Int64
	deniedPattern    atomic.Int64
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters { return &Counters{} }

// RecordEvaluated notes one gateway evaluation.
func (c *Counters) RecordEvaluated() {
	if c != nil {
		c.evaluated.Add(1)
	}
}

// RecordAllowed notes one allowed request.
func (c *Counters) RecordAllowed() {
	if c != nil {
		c.allowed.Add(1)
	}
}

// RecordDeniedReputation notes one denial from existing blocklist state.
func (c *Counters) RecordDeniedReputation() {
	if c != nil {
		c.deniedReputation.Add(1)
	}
}

// RecordDeniedPattern notes one denial from a signature match.
func (c *Counters) RecordDeniedPattern() {
	if c != nil {
		c.deniedPattern.Add(1)
	}
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Evaluated        int64 `json:"evaluated"`
	Allowed          int64 `json:"allowed"`
	DeniedReputation int64 `json:"denied_reputation"`
	DeniedPattern    int64 `json:"denied_pattern"`
}

// Snapshot reads the counters. Safe to call concurrently with writers;
// the fields are read independently, not as one atomic unit.
func (c *Counters) Snapshot() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Evaluated:        c.evaluated.Load(),
		Allowed:          c.allowed.Load(),
		DeniedReputation: c.deniedReputation.Load(),
		DeniedPattern:    c.deniedPattern.Load(),
	}
}
