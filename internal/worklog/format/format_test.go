package format

import (
	"strings"
	"testing"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

func TestRender_OmitsEmptySections(t *testing.T) {
	session := domain.NormalizedSession{Project: "acme", GitBranch: "main"}
	ctx := domain.ContextDoc{Title: "Quiet session"}

	got := Render(session, ctx)

	for _, heading := range []string{"## Prompts & Intent", "## Key Decisions", "## Problems Solved", "## Insights"} {
		if strings.Contains(got, heading) {
			t.Errorf("expected %q to be omitted, got:\n%s", heading, got)
		}
	}
	if !strings.Contains(got, "# Session: Quiet session") {
		t.Errorf("missing title heading: %s", got)
	}
	if !strings.Contains(got, "**Project**: acme") || !strings.Contains(got, "**Branch**: main") {
		t.Errorf("missing metadata lines: %s", got)
	}
}

func TestRender_IncludesAllPopulatedSectionsInOrder(t *testing.T) {
	session := domain.NormalizedSession{Project: "acme", GitBranch: "main"}
	ctx := domain.ContextDoc{
		Title:            "Full session",
		PromptsAndIntent: "user asked to add caching",
		KeyDecisions: []domain.KeyDecision{
			{Title: "use LRU cache", Reasoning: "bounded memory"},
			{Title: "cache at service layer", Reasoning: "avoids duplicating logic"},
		},
		ProblemsSolved: []string{"slow repeated queries"},
		Insights:       []string{"consider cache metrics next"},
	}

	got := Render(session, ctx)

	order := []string{
		"## Prompts & Intent",
		"user asked to add caching",
		"## Key Decisions",
		"### use LRU cache",
		"bounded memory",
		"### cache at service layer",
		"## Problems Solved",
		"- slow repeated queries",
		"## Insights",
		"- consider cache metrics next",
	}
	last := -1
	for _, s := range order {
		idx := strings.Index(got, s)
		if idx == -1 {
			t.Fatalf("missing %q in:\n%s", s, got)
		}
		if idx <= last {
			t.Fatalf("%q out of order in:\n%s", s, got)
		}
		last = idx
	}
}

func TestRender_NeverEmbedsRawTurnContent(t *testing.T) {
	session := domain.NormalizedSession{
		Project: "acme",
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: "my raw secret conversation text"},
		},
	}
	ctx := domain.ContextDoc{Title: "t", PromptsAndIntent: "summarized intent only"}

	got := Render(session, ctx)
	if strings.Contains(got, "my raw secret conversation text") {
		t.Fatalf("formatter leaked raw turn content: %s", got)
	}
}
