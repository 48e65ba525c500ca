package patterns

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rampartlabs/rampart/pkg/threat"
)

// RuleFile is the YAML document operators use to extend the built-in
// signature set. Every rule must name a threat type from the closed set,
// so the effective rule list stays enumerable and auditable.
//
//	rules:
//	  - name: sqli_sleep
//	    type: sql-injection
//	    severity: high
//	    pattern: '(?i);\s*sleep\s*\(\d+\)'
//	    description: Time-based SLEEP probe
type RuleFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is one operator-supplied rule.
type RuleConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Severity    string `yaml:"severity"`
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
}

// LoadRuleFile parses a YAML rule file and registers every rule.
// Any invalid rule aborts the load: a partially applied rule file is
// harder to audit than a rejected one.
func (r *Registry) LoadRuleFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rule file: %w", err)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return fmt.Errorf("parse rule file %s: %w", path, err)
	}

	for i, rc := range rf.Rules {
		if err := r.Add(rc.Name, rc.Pattern, threat.Type(rc.Type), threat.Severity(rc.Severity), rc.Description); err != nil {
			return fmt.Errorf("rule file %s entry %d: %w", path, i, err)
		}
	}
	return nil
}
