// Package gateway is the per-request entry point of the detection
// engine. It composes the pattern registry and the reputation tracker
// into an allow/deny decision and is the only writer to the threat
// ledger.
//
// Decision order matters: existing reputation short-circuits pattern
// scanning, both for cost and because a reputation denial is not itself
// a new threat observation. Internal scan failures fail open toward
// availability; blocklist membership fails closed.
package gateway

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/rampartlabs/rampart/pkg/ledger"
	"github.com/rampartlabs/rampart/pkg/patterns"
	"github.com/rampartlabs/rampart/pkg/reputation"
	"github.com/rampartlabs/rampart/pkg/telemetry"
	"github.com/rampartlabs/rampart/pkg/threat"
)

// UnknownSource stands in for requests whose source identifier is
// missing or unparseable. Treated as a regular identifier rather than
// an error so malformed descriptors cannot become a bypass or a crash
// vector.
const UnknownSource = "unknown"

// RequestDescriptor is the normalized request handed in by the HTTP
// middleware: a source identifier plus the three labeled text blocks
// forming the scan payload.
type RequestDescriptor struct {
	Source string `json:"source"`
	Body   string `json:"body"`
	Query  string `json:"query"`
	Params string `json:"params"`
}

// Decision is the gateway's verdict for one request. Reason carries the
// matched threat type for operational logging only; the HTTP layer must
// answer denied requests with a generic body and never echo it.
type Decision struct {
	Allow      bool        `json:"allow"`
	Reason     threat.Type `json:"reason,omitempty"`
	HTTPStatus int         `json:"http_status"`
}

// Gateway evaluates inbound requests.
type Gateway struct {
	registry *patterns.Registry
	store    ledger.Store
	tracker  *reputation.Tracker
	metrics  *telemetry.Counters
}

// New wires the gateway. metrics may be nil.
func New(registry *patterns.Registry, store ledger.Store, tracker *reputation.Tracker, metrics *telemetry.Counters) *Gateway {
	return &Gateway{
		registry: registry,
		store:    store,
		tracker:  tracker,
		metrics:  metrics,
	}
}

// Evaluate runs the per-request state machine:
//
//	RECEIVED -> reputation check -> [denied 403 | continue]
//	         -> pattern scan     -> [denied 400 + ledger append | allowed]
//
// Clean requests leave no ledger trace; the ledger records threats, not
// an access log. Denials from existing reputation also do not append:
// they are a distinct outcome from pattern-based detection.
func (g *Gateway) Evaluate(ctx context.Context, req RequestDescriptor) Decision {
	g.metrics.RecordEvaluated()

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = UnknownSource
	}

	if g.tracker.IsBlocked(ctx, source) {
		g.metrics.RecordDeniedReputation()
		return Decision{Allow: false, HTTPStatus: http.StatusForbidden}
	}

	payload := g.registry.Canonicalize(req.Body, req.Query, req.Params)
	match := g.registry.Strongest(payload)
	if match == nil {
		g.metrics.RecordAllowed()
		return Decision{Allow: true, HTTPStatus: http.StatusOK}
	}

	ev := threat.NewEvent(match.Type, match.Severity, source, true)
	if err := g.store.Append(ctx, ev); err != nil {
		// The denial stands on the match; losing the audit entry is
		// logged, not propagated into the request path.
		log.Printf("[GATEWAY] ledger append failed for %s: %v", source, err)
	}

	if g.tracker.EvaluateAndMaybeBlock(ctx, source) {
		log.Printf("[GATEWAY] source %s escalated to blocklist (trigger: %s)", source, match.Name)
	}

	g.metrics.RecordDeniedPattern()
	return Decision{Allow: false, Reason: match.Type, HTTPStatus: http.StatusBadRequest}
}
