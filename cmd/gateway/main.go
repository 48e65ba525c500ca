package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/rampartlabs/rampart/pkg/config"
	"github.com/rampartlabs/rampart/pkg/cryptoutil"
	"github.com/rampartlabs/rampart/pkg/gateway"
	"github.com/rampartlabs/rampart/pkg/httputil"
	"github.com/rampartlabs/rampart/pkg/ledger"
	"github.com/rampartlabs/rampart/pkg/patterns"
	"github.com/rampartlabs/rampart/pkg/report"
	"github.com/rampartlabs/rampart/pkg/reputation"
	"github.com/rampartlabs/rampart/pkg/risk"
	"github.com/rampartlabs/rampart/pkg/telemetry"
)

const Version = "0.1.0"

// Engine wires the detection components behind the HTTP surface.
type Engine struct {
	cfg      *config.Config
	registry *patterns.Registry
	store    ledger.Store
	tracker  *reputation.Tracker
	gateway  *gateway.Gateway
	reports  *report.Generator
	metrics  *telemetry.Counters
}

// NewEngine builds the full pipeline from config: pattern registry
// (builtin signatures plus an optional rule file), ledger backend
// (Redis when configured, in-memory otherwise), reputation tracker,
// risk scorer and report generator.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := patterns.New()
	if cfg.RuleFilePath != "" {
		if err := registry.LoadRuleFile(cfg.RuleFilePath); err != nil {
			return nil, fmt.Errorf("load rule file %s: %w", cfg.RuleFilePath, err)
		}
		log.Printf("[STARTUP] Loaded rule file %s (%d patterns total)", cfg.RuleFilePath, registry.TotalPatterns())
	} else {
		log.Printf("[STARTUP] Using builtin signatures (%d patterns)", registry.TotalPatterns())
	}

	var store ledger.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis ledger at %s: %w", cfg.RedisAddr, err)
		}
		store = ledger.NewRedis(rdb, cfg.RedisPrefix, cfg.RetentionWindow)
		log.Printf("[STARTUP] Ledger backend: redis (%s)", cfg.RedisAddr)
	} else {
		store = ledger.NewMemory(cfg.RetentionWindow)
		log.Println("[STARTUP] Ledger backend: in-memory")
	}

	tracker := reputation.New(store, cfg.EscalationWindow, cfg.EscalationThreshold)
	metrics := telemetry.NewCounters()
	scorer := risk.NewScorer(store)

	return &Engine{
		cfg:      cfg,
		registry: registry,
		store:    store,
		tracker:  tracker,
		gateway:  gateway.New(registry, store, tracker, metrics),
		reports:  report.NewGenerator(store, scorer, cfg.ScoringWindow),
		metrics:  metrics,
	}, nil
}

func main() {
	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		port := ""
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: rampart scan <text>")
			os.Exit(1)
		}
		runCLIScan(strings.Join(os.Args[2:], " "))
	case "encrypt":
		if len(os.Args) < 3 {
			fmt.Println("Usage: rampart encrypt <text>   (key from RAMPART_SECRET_KEY)")
			os.Exit(1)
		}
		runEncrypt(strings.Join(os.Args[2:], " "))
	case "decrypt":
		if len(os.Args) < 3 {
			fmt.Println("Usage: rampart decrypt <envelope>   (key from RAMPART_SECRET_KEY)")
			os.Exit(1)
		}
		runDecrypt(os.Args[2])
	case "version":
		fmt.Printf("Rampart v%s\n", Version)
		fmt.Println("Request Threat Detection Gateway")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Rampart v%s - Request Threat Detection Gateway\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  rampart serve [port]        Start HTTP server (default: 8080)")
	fmt.Println("  rampart scan <text>         Classify text against the signature registry")
	fmt.Println("  rampart encrypt <text>      Encrypt text with RAMPART_SECRET_KEY")
	fmt.Println("  rampart decrypt <envelope>  Decrypt an envelope with RAMPART_SECRET_KEY")
	fmt.Println("  rampart version             Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  RAMPART_ESCALATION_WINDOW     Repeat-offender window (default: 5m)")
	fmt.Println("  RAMPART_ESCALATION_THRESHOLD  Denials before blocking (default: 5)")
	fmt.Println("  RAMPART_SCORING_WINDOW        Risk scoring window (default: 24h)")
	fmt.Println("  RAMPART_REDIS_ADDR            Redis ledger backend (default: in-memory)")
	fmt.Println("  RAMPART_RULE_FILE             Extra YAML signature rules")
	fmt.Println("  RAMPART_SECRET_KEY            Key for encrypt/decrypt")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(port string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()
	if port == "" {
		port = cfg.Port
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}

	sem := httputil.NewSemaphore(cfg.MaxConcurrentScans)

	app := fiber.New(fiber.Config{
		AppName: "Rampart",
	})

	// Health check
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"version":   Version,
			"counters":  engine.metrics.Snapshot(),
			"semaphore": sem.Stats(),
		})
	})

	// Request evaluation. Denial responses carry a generic body only:
	// the matched signature and threat type stay in the ledger, never in
	// the response to the caller.
	app.Post("/evaluate", func(c fiber.Ctx) error {
		if !sem.TryAcquire() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "server busy"})
		}
		defer sem.Release()

		var req gateway.RequestDescriptor
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.Source == "" {
			req.Source = clientAddr(c)
		}

		decision := engine.gateway.Evaluate(c.Context(), req)
		if !decision.Allow {
			return c.Status(decision.HTTPStatus).JSON(fiber.Map{"error": "request denied"})
		}
		return c.JSON(fiber.Map{"allowed": true})
	})

	// Operational report over the scoring window.
	app.Get("/report", func(c fiber.Ctx) error {
		rep, err := engine.reports.Generate(c.Context())
		if err != nil {
			log.Printf("[REPORT] generation failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "report unavailable"})
		}
		return c.JSON(rep)
	})

	// Allowlist management.
	app.Post("/allowlist/:source", func(c fiber.Ctx) error {
		source := c.Params("source")
		engine.tracker.Allowlist(source)
		log.Printf("[REPUTATION] source %s allowlisted", source)
		return c.JSON(fiber.Map{"source": source, "allowlisted": true})
	})
	app.Delete("/allowlist/:source", func(c fiber.Ctx) error {
		source := c.Params("source")
		engine.tracker.RemoveAllowlist(source)
		log.Printf("[REPUTATION] source %s removed from allowlist", source)
		return c.JSON(fiber.Map{"source": source, "allowlisted": false})
	})

	log.Printf("[STARTUP] Rampart HTTP server starting on :%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET    /health              - Health check and counters")
	log.Printf("  POST   /evaluate            - Evaluate a request descriptor")
	log.Printf("  GET    /report              - Threat summary report")
	log.Printf("  POST   /allowlist/:source   - Allowlist a source")
	log.Printf("  DELETE /allowlist/:source   - Remove a source from the allowlist")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

// clientAddr picks the forwarded client address when upstream middleware
// sets one, falling back to the socket peer.
func clientAddr(c fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	return c.IP()
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIScan(text string) {
	registry := patterns.New()
	payload := registry.Canonicalize(text, "", "")

	result := struct {
		Types    []string `json:"types"`
		Severity string   `json:"severity,omitempty"`
		Matched  string   `json:"matched_rule,omitempty"`
	}{Types: []string{}}

	for _, typ := range registry.Classify(payload) {
		result.Types = append(result.Types, string(typ))
	}
	if strongest := registry.Strongest(payload); strongest != nil {
		result.Severity = string(strongest.Severity)
		result.Matched = strongest.Name
	}

	output, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(output))
}

func secretKey() []byte {
	key := os.Getenv("RAMPART_SECRET_KEY")
	if key == "" {
		log.Fatal("RAMPART_SECRET_KEY is not set")
	}
	return []byte(key)
}

func runEncrypt(text string) {
	envelope, err := cryptoutil.Encrypt([]byte(text), secretKey())
	if err != nil {
		log.Fatalf("encrypt: %v", err)
	}
	fmt.Println(envelope)
}

func runDecrypt(envelope string) {
	plaintext, err := cryptoutil.Decrypt(envelope, secretKey())
	if err != nil {
		log.Fatalf("decrypt: %v", err)
	}
	fmt.Println(string(plaintext))
}
