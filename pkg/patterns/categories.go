package patterns

import "github.com/rampartlabs/rampart/pkg/threat"

// =============================================================================
// BUILT-IN SIGNATURE SET
// Rules are registered here and compiled once at registry construction.
// Matching is case-insensitive throughout. Operators can extend the set
// via a YAML rule file (see rulefile.go); the threat types stay closed.
// =============================================================================

// --- SCRIPT INJECTION ---
func (r *Registry) registerScriptInjectionPatterns() {
	typ := threat.TypeScriptInjection
	sev := threat.DefaultSeverity(typ)

	r.register("script_tag", `(?i)<\s*script\b`, typ, sev, "Inline script tag")
	r.register("script_tag_close", `(?i)<\s*/\s*script\s*>`, typ, sev, "Closing script tag")
	r.register("javascript_uri", `(?i)javascript\s*:`, typ, sev, "javascript: URI scheme")
	r.register("event_handler_attr", `(?i)\bon(error|load|click|mouseover|focus|submit|input)\s*=`, typ, sev, "Inline event-handler attribute")
	r.register("iframe_srcdoc", `(?i)<\s*iframe\b[^>]*srcdoc\s*=`, typ, sev, "iframe srcdoc injection")
	r.register("img_onerror", `(?i)<\s*img\b[^>]*\bonerror\b`, typ, sev, "Image onerror payload")
}

// --- SQL INJECTION ---
func (r *Registry) registerSQLInjectionPatterns() {
	typ := threat.TypeSQLInjection
	sev := threat.DefaultSeverity(typ)

	r.register("sql_boolean_tautology", `(?i)'\s*or\s*'[^']*'\s*=\s*'`, typ, sev, "Boolean-based tautology ('...' OR '...'='...')")
	r.register("sql_union_select", `(?i)\bunion\s+(all\s+)?select\b`, typ, sev, "UNION SELECT extraction")
	r.register("sql_drop_table", `(?i)\bdrop\s+table\b`, typ, sev, "DROP TABLE statement")
	r.register("sql_insert_into", `(?i)\binsert\s+into\b`, typ, sev, "INSERT INTO statement")
	r.register("sql_update_set", `(?i)\bupdate\s+\w+\s+set\b`, typ, sev, "UPDATE ... SET statement")
	r.register("sql_delete_from", `(?i)\bdelete\s+from\b`, typ, sev, "DELETE FROM statement")
	r.register("sql_comment_terminator", `(?i)'\s*(--|#)`, typ, sev, "Quote followed by SQL comment")
}

// --- MALWARE DELIVERY ---
// Droppers and reverse-shell one-liners seen in request bodies. The
// remaining threat types (csrf, brute-force, flood) are behavioral and
// have no payload signature; they enter the ledger through rule files
// or future detectors, not this built-in set.
func (r *Registry) registerMalwarePatterns() {
	typ := threat.TypeMalware
	sev := threat.DefaultSeverity(typ)

	r.register("curl_pipe_shell", `(?i)curl[^|;]*\|\s*(ba)?sh\b`, typ, sev, "Curl piped to shell")
	r.register("wget_pipe_shell", `(?i)wget[^|;]*\|\s*(ba)?sh\b`, typ, sev, "Wget piped to shell")
	r.register("reverse_shell_devtcp", `(?i)/dev/tcp/\d+\.\d+\.\d+\.\d+`, typ, sev, "Reverse shell via /dev/tcp")
	r.register("base64_eval", `(?i)\beval\s*\(\s*(atob|base64_decode)\s*\(`, typ, sev, "Eval of base64-decoded payload")
}
