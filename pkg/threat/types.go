// Package threat defines the core data model shared by the detection
// engine: threat types, severities, and the immutable ThreatEvent record.
package threat

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies an attack class. The set is closed: the pattern
// registry, the ledger, and reports only ever deal in these values.
type Type string

const (
	TypeScriptInjection Type = "script-injection"
	TypeSQLInjection    Type = "sql-injection"
	TypeCSRF            Type = "csrf"
	TypeBruteForce      Type = "brute-force"
	TypeFlood           Type = "flood"
	TypeMalware         Type = "malware"
)

// KnownTypes returns every valid threat type, in a stable order.
func KnownTypes() []Type {
	return []Type{
		TypeScriptInjection,
		TypeSQLInjection,
		TypeCSRF,
		TypeBruteForce,
		TypeFlood,
		TypeMalware,
	}
}

// ValidType reports whether t is a member of the closed type set.
func ValidType(t Type) bool {
	switch t {
	case TypeScriptInjection, TypeSQLInjection, TypeCSRF,
		TypeBruteForce, TypeFlood, TypeMalware:
		return true
	}
	return false
}

// Severity is totally ordered: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Linear-saturating risk weights. Not a calibrated statistical model;
// see the risk scorer.
var severityWeight = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   3,
	SeverityHigh:     7,
	SeverityCritical: 15,
}

// Rank returns the ordering rank of s (0 for an unknown severity).
func (s Severity) Rank() int { return severityRank[s] }

// Weight returns the risk score contribution of one event at this severity.
func (s Severity) Weight() int { return severityWeight[s] }

// Valid reports whether s is one of the four defined severities.
func (s Severity) Valid() bool { return severityRank[s] != 0 }

// DefaultSeverity maps a threat type to its default severity.
// SQL injection and script injection are both HIGH: either one is a
// direct attempt to subvert the application.
func DefaultSeverity(t Type) Severity {
	switch t {
	case TypeScriptInjection, TypeSQLInjection:
		return SeverityHigh
	case TypeMalware:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// Event is an immutable record of one observed threat. Events are
// created only by the detection gateway and never mutated or deleted
// once appended to the ledger. The raw payload is never stored, only
// the classification.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Severity  Severity  `json:"severity"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	// Blocked records the decision made when the event was written,
	// not a later re-evaluation.
	Blocked bool `json:"blocked"`
}

// NewEvent stamps a fresh event with a UUID and the current UTC time.
func NewEvent(t Type, sev Severity, source string, blocked bool) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Severity:  sev,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Blocked:   blocked,
	}
}
