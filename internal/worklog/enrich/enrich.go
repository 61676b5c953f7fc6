// Package enrich classifies a sanitized session as significant or not and
// produces the longer context document surfaced to the content store,
// via a single structured-output call to an LLM provider.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

// minTurns is the input constraint from spec.md §4.4: fewer turns and the
// enricher rejects without calling the LLM at all.
const minTurns = 3

const temperature = 0.3

// ErrTooFewTurns is returned when the sanitized session has fewer than
// minTurns turns; no LLM call is made.
var ErrTooFewTurns = errors.New("enrich: session has too few turns")

// EnrichmentError wraps an unparsable or schema-violating LLM reply,
// carrying the raw text for diagnostics.
type EnrichmentError struct {
	Reply string
	Err   error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich: %v (reply: %q)", e.Err, truncate(e.Reply, 500))
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// Config carries the API key and model for enrichment calls; the provider
// is always Anthropic.
type Config struct {
	APIKey string
	Model  string
}

// Enricher calls an Anthropic model to judge and summarize a session.
type Enricher struct {
	client anthropic.Client
	model  string
}

// New constructs an Enricher from Config.
func New(cfg Config) *Enricher {
	return &Enricher{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
	}
}

const systemPrompt = `You are a judge reviewing a coding assistant session transcript.
Decide whether the session represents significant engineering work worth
surfacing to a team worklog, and produce a structured summary regardless
of that decision. Respond with exactly one JSON object matching this
schema and nothing else:

{
  "isSignificant": bool,
  "entry": null | { "summary": str, "decision": str, "problem": str, "tags": [str] },
  "context": {
    "title": str,
    "promptsAndIntent": str,
    "keyDecisions": [ { "title": str, "reasoning": str } ],
    "problemsSolved": [str],
    "insights": [str]
  }
}

"entry" must be non-null when isSignificant is true. "context" is always
present.`

// Enrich classifies session and renders its context document.
func (e *Enricher) Enrich(ctx context.Context, session domain.NormalizedSession) (domain.EnrichmentResult, error) {
	if len(session.Turns) < minTurns {
		return domain.EnrichmentResult{}, ErrTooFewTurns
	}

	userPrompt := buildUserPrompt(session)

	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   4096,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("enrich: llm call: %w", err)
	}

	reply := replyText(msg)
	result, err := parseReply(reply)
	if err != nil {
		return domain.EnrichmentResult{}, &EnrichmentError{Reply: reply, Err: err}
	}
	return result, nil
}

func replyText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if text := block.Text; text != "" {
			sb.WriteString(text)
		}
	}
	return sb.String()
}

func buildUserPrompt(session domain.NormalizedSession) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "project: %s\n", session.Project)
	fmt.Fprintf(&sb, "branch: %s\n", session.GitBranch)
	fmt.Fprintf(&sb, "summary: %s\n\n", session.Summary)
	for _, turn := range session.Turns {
		switch turn.Role {
		case domain.RoleUser:
			fmt.Fprintf(&sb, "USER:\n%s\n\n", turn.Content)
		case domain.RoleAssistant:
			fmt.Fprintf(&sb, "ASSISTANT:\n%s\n\n", turn.Content)
		}
	}
	return sb.String()
}

type replyPayload struct {
	IsSignificant *bool        `json:"isSignificant"`
	Entry         *replyEntry  `json:"entry"`
	Context       replyContext `json:"context"`
}

type replyEntry struct {
	Summary  string   `json:"summary"`
	Decision string   `json:"decision"`
	Problem  string   `json:"problem"`
	Tags     []string `json:"tags"`
}

type replyContext struct {
	Title            string              `json:"title"`
	PromptsAndIntent string              `json:"promptsAndIntent"`
	KeyDecisions     []replyKeyDecision  `json:"keyDecisions"`
	ProblemsSolved   []string            `json:"problemsSolved"`
	Insights         []string            `json:"insights"`
}

type replyKeyDecision struct {
	Title     string `json:"title"`
	Reasoning string `json:"reasoning"`
}

// parseReply implements the parsing policy of spec.md §4.4.
func parseReply(reply string) (domain.EnrichmentResult, error) {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return domain.EnrichmentResult{}, errors.New("empty reply")
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("non-JSON reply: %w", err)
	}

	if payload.IsSignificant == nil {
		return domain.EnrichmentResult{}, errors.New("missing isSignificant")
	}
	if *payload.IsSignificant && payload.Entry == nil {
		return domain.EnrichmentResult{}, errors.New("isSignificant=true with null entry")
	}

	result := domain.EnrichmentResult{
		IsSignificant: *payload.IsSignificant,
		Context: domain.ContextDoc{
			Title:            payload.Context.Title,
			PromptsAndIntent: payload.Context.PromptsAndIntent,
			ProblemsSolved:   payload.Context.ProblemsSolved,
			Insights:         payload.Context.Insights,
		},
	}
	for _, kd := range payload.Context.KeyDecisions {
		result.Context.KeyDecisions = append(result.Context.KeyDecisions, domain.KeyDecision{
			Title:     kd.Title,
			Reasoning: kd.Reasoning,
		})
	}
	if payload.Entry != nil {
		result.Entry = &domain.WorklogEntry{
			Summary:  payload.Entry.Summary,
			Decision: payload.Entry.Decision,
			Problem:  payload.Entry.Problem,
			Tags:     payload.Entry.Tags,
		}
	}

	log.Debug().Bool("significant", result.IsSignificant).Msg("enrichment reply parsed")
	return result, nil
}
