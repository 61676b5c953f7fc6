// Package sanitize removes sensitive content from a normalized session
// before it ever reaches the enricher or the content store. It is purely
// rule-based: no network calls, no LLM involvement.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

// Config is the sanitizer's rule set, sourced from the host's
// SanitizationConfig section.
type Config struct {
	BlockedProjects []string
	BlockedPaths    []string
	BlockedDomains  []string
	// RedactedTerms maps literal terms (project codenames, client names)
	// to their replacement text, applied after the built-in regex
	// patterns. Unlike BlockedPaths/BlockedDomains this replaces the term
	// in place rather than dropping the turn.
	RedactedTerms map[string]string
}

// redactionPattern is one compiled secret/URL/IP pattern and the literal
// it is replaced with.
type redactionPattern struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

var redactionPatterns = compileRedactionPatterns()

// compileRedactionPatterns returns the built-in content-redaction patterns,
// applied in order to every turn's content.
func compileRedactionPatterns() []redactionPattern {
	patterns := []struct {
		name        string
		pattern     string
		replacement string
	}{
		{"secret_kv", `(?i)(api_key|apikey|token|secret|password)\s*[:=]\s*\S{8,}`, "[REDACTED]"},
		{"bearer_token", `Bearer\s+\S{16,}`, "[REDACTED]"},
		{"github_pat", `ghp_[A-Za-z0-9]{20,}`, "[REDACTED]"},
		{"jwt", `[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`, "[REDACTED]"},
		{"sk_key", `sk-[A-Za-z0-9_-]{20,}`, "[REDACTED]"},
		{"localhost_url", `https?://localhost[:/][^\s]*`, "[REDACTED_URL]"},
		{"private_ip_10", `\b10\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`, "[REDACTED_IP]"},
		{"private_ip_172", `\b172\.(1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3}\b`, "[REDACTED_IP]"},
		{"private_ip_192", `\b192\.168\.\d{1,3}\.\d{1,3}\b`, "[REDACTED_IP]"},
	}

	compiled := make([]redactionPattern, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, redactionPattern{
			name:        p.name,
			pattern:     regexp.MustCompile(p.pattern),
			replacement: p.replacement,
		})
	}
	return compiled
}

func redact(content string) string {
	for _, rp := range redactionPatterns {
		content = rp.pattern.ReplaceAllString(content, rp.replacement)
	}
	return content
}

// Sanitize applies the project gate, content redaction, blocklist filter
// and empty-session collapse of spec.md §4.3. ok is false when the
// session was dropped entirely (project blocked, or zero turns remain).
func Sanitize(cfg Config, session domain.NormalizedSession) (domain.NormalizedSession, bool) {
	if projectBlocked(cfg, session.Project) {
		return domain.NormalizedSession{}, false
	}

	turns := make([]domain.Turn, 0, len(session.Turns))
	for _, turn := range session.Turns {
		content := redact(turn.Content)
		content = redactTerms(content, cfg.RedactedTerms)
		if blocklisted(cfg, content) {
			continue
		}
		turn.Content = content
		turns = append(turns, turn)
	}

	if len(turns) == 0 {
		return domain.NormalizedSession{}, false
	}

	session.Turns = turns
	return session, true
}

func redactTerms(content string, terms map[string]string) string {
	for term, replacement := range terms {
		if term == "" {
			continue
		}
		content = strings.ReplaceAll(content, term, replacement)
	}
	return content
}

func projectBlocked(cfg Config, project string) bool {
	return containsAnyFold(project, cfg.BlockedProjects)
}

func blocklisted(cfg Config, content string) bool {
	return containsAnyFold(content, cfg.BlockedPaths) ||
		containsAnyFold(content, cfg.BlockedProjects) ||
		containsAnyFold(content, cfg.BlockedDomains)
}

func containsAnyFold(haystack string, needles []string) bool {
	if haystack == "" {
		return false
	}
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
