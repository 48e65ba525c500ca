// Package patterns provides the signature registry for request threat
// detection. All regex rules are compiled once when the registry is
// constructed and shared across all request evaluations.
//
// Design principles:
// - COMPILE ONCE: all rules compiled at construction, not per-request
// - CLOSED SET: every rule is tagged with a threat type from pkg/threat
// - KNOWN SIGNATURES ONLY: payloads that match no rule are not classified;
//   this is a signature matcher, not anomaly detection
package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/rampartlabs/rampart/pkg/threat"
)

// MaxPayloadBytes caps the serialized payload before matching. Bounding
// the input length keeps pathological payloads from turning regex
// matching into a denial-of-service vector of its own.
const MaxPayloadBytes = 64 * 1024

// Pattern holds a compiled regex with its threat classification.
type Pattern struct {
	Name        string          // Human-readable name for logging
	Regex       *regexp.Regexp  // Compiled regex (never nil)
	Type        threat.Type     // Threat type this rule detects
	Severity    threat.Severity // Severity assigned to matching events
	Description string          // What this rule detects
}

// Registry holds all compiled rules, organized by threat type.
// Construct one instance at startup and share it; a fresh instance per
// test keeps rule state isolated.
type Registry struct {
	mu         sync.RWMutex
	byType     map[threat.Type][]*Pattern
	all        []*Pattern
	maxPayload int
}

// New creates a registry populated with the built-in signature set.
func New() *Registry {
	r := &Registry{
		byType:     make(map[threat.Type][]*Pattern),
		all:        make([]*Pattern, 0, 32),
		maxPayload: MaxPayloadBytes,
	}

	r.registerScriptInjectionPatterns()
	r.registerSQLInjectionPatterns()
	r.registerMalwarePatterns()

	return r
}

// register compiles and adds a built-in rule. Built-in patterns use
// MustCompile; operator-supplied rules go through Add instead.
func (r *Registry) register(name, pattern string, typ threat.Type, sev threat.Severity, description string) {
	compiled := regexp.MustCompile(pattern)
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &Pattern{
		Name:        name,
		Regex:       compiled,
		Type:        typ,
		Severity:    sev,
		Description: description,
	}
	r.byType[typ] = append(r.byType[typ], p)
	r.all = append(r.all, p)
}

// Add registers an operator-supplied rule. The threat type must belong
// to the closed set and the severity must be one of the four defined
// levels so the rule list stays auditable.
func (r *Registry) Add(name, pattern string, typ threat.Type, sev threat.Severity, description string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("rule name is required")
	}
	if !threat.ValidType(typ) {
		return fmt.Errorf("rule %s: unknown threat type %q", name, typ)
	}
	if !sev.Valid() {
		return fmt.Errorf("rule %s: unknown severity %q", name, sev)
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("rule %s: invalid pattern: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p := &Pattern{
		Name:        name,
		Regex:       compiled,
		Type:        typ,
		Severity:    sev,
		Description: description,
	}
	r.byType[typ] = append(r.byType[typ], p)
	r.all = append(r.all, p)
	return nil
}

// Canonicalize serializes a request's text blocks into the labeled form
// the rules match against. The field order is fixed so matching does not
// depend on map iteration order upstream, and the result is NFKC
// normalized so full-width or decomposed Unicode variants of a signature
// cannot slip past the byte-level regexes.
func (r *Registry) Canonicalize(body, query, params string) string {
	var sb strings.Builder
	sb.Grow(len(body) + len(query) + len(params) + 24)
	sb.WriteString("body: ")
	sb.WriteString(body)
	sb.WriteString("\nquery: ")
	sb.WriteString(query)
	sb.WriteString("\nparams: ")
	sb.WriteString(params)

	payload := sb.String()
	if len(payload) > r.maxPayload {
		payload = truncateOnRune(payload, r.maxPayload)
	}
	return norm.NFKC.String(payload)
}

// Classify returns the set of threat types whose rules match the
// payload. A clean payload yields an empty slice.
func (r *Registry) Classify(payload string) []threat.Type {
	matches := r.MatchAll(payload)
	seen := make(map[threat.Type]struct{}, len(matches))
	types := make([]threat.Type, 0, len(matches))
	for _, p := range matches {
		if _, ok := seen[p.Type]; ok {
			continue
		}
		seen[p.Type] = struct{}{}
		types = append(types, p.Type)
	}
	return types
}

// MatchAll returns every rule that matches the payload. The payload is
// capped before matching; a signature that begins past the cap is not
// seen, which is the documented fail-open trade for bounded scan cost.
func (r *Registry) MatchAll(payload string) []*Pattern {
	if len(payload) > r.maxPayload {
		payload = truncateOnRune(payload, r.maxPayload)
	}

	r.mu.RLock()
	rules := r.all
	r.mu.RUnlock()

	var matches []*Pattern
	for _, p := range rules {
		if p.Regex.MatchString(payload) {
			matches = append(matches, p)
		}
	}
	return matches
}

// Strongest returns the highest-severity matching rule, or nil for a
// clean payload. Ties keep the earliest-registered rule.
func (r *Registry) Strongest(payload string) *Pattern {
	var best *Pattern
	for _, p := range r.MatchAll(payload) {
		if best == nil || p.Severity.Rank() > best.Severity.Rank() {
			best = p
		}
	}
	return best
}

// TotalPatterns returns the number of registered rules.
func (r *Registry) TotalPatterns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// CountByType returns the number of rules for one threat type.
func (r *Registry) CountByType(typ threat.Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType[typ])
}

// truncateOnRune cuts s at max bytes, dropping only a multi-byte rune
// the cut would split. Invalid bytes elsewhere in the payload are kept
// as-is: the regexes match raw bytes, so a stray binary byte must not
// discard the text after it. Backtracks at most utf8.UTFMax-1 bytes.
func truncateOnRune(s string, max int) string {
	cut := s[:max]
	for i := 1; i < utf8.UTFMax && i <= len(cut); i++ {
		b := cut[len(cut)-i]
		if b < utf8.RuneSelf {
			break
		}
		if utf8.RuneStart(b) {
			if _, size := utf8.DecodeRuneInString(s[len(cut)-i:]); size > i {
				cut = cut[:len(cut)-i]
			}
			break
		}
	}
	return cut
}
