package sanitize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk shape of an optional sanitization rules
// corpus: a standalone YAML file an operator can edit without touching
// the main config, covering the blocklists plus the reserved
// redacted-terms extension point from spec.md §9.
type rulesFile struct {
	BlockedProjects []string          `yaml:"blocked_projects"`
	BlockedPaths    []string          `yaml:"blocked_paths"`
	BlockedDomains  []string          `yaml:"blocked_domains"`
	RedactedTerms   map[string]string `yaml:"redacted_terms"`
}

// LoadRulesFile reads a YAML rules corpus and merges it into base,
// appending to each list and adding to the RedactedTerms map. A missing
// path is not an error: the rules file is an optional supplement, and a
// deployment may rely on the main config's inline lists alone.
func LoadRulesFile(path string, base Config) (Config, error) {
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Config{}, fmt.Errorf("sanitize: read rules file %s: %w", path, err)
	}

	var rules rulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Config{}, fmt.Errorf("sanitize: parse rules file %s: %w", path, err)
	}

	merged := base
	merged.BlockedProjects = append(append([]string{}, base.BlockedProjects...), rules.BlockedProjects...)
	merged.BlockedPaths = append(append([]string{}, base.BlockedPaths...), rules.BlockedPaths...)
	merged.BlockedDomains = append(append([]string{}, base.BlockedDomains...), rules.BlockedDomains...)

	if len(rules.RedactedTerms) > 0 {
		terms := make(map[string]string, len(base.RedactedTerms)+len(rules.RedactedTerms))
		for k, v := range base.RedactedTerms {
			terms[k] = v
		}
		for k, v := range rules.RedactedTerms {
			terms[k] = v
		}
		merged.RedactedTerms = terms
	}

	return merged, nil
}
