// Package format renders an EnrichmentResult's context document as the
// fixed Markdown layout published to the content store.
package format

import (
	"fmt"
	"strings"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

// Render produces the Markdown body for a session's context document.
// Sections with an empty body are omitted entirely, heading included.
func Render(session domain.NormalizedSession, ctx domain.ContextDoc) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Session: %s\n\n", ctx.Title)
	sb.WriteString("**Source**: claude-code\n")
	fmt.Fprintf(&sb, "**Project**: %s\n", session.Project)
	fmt.Fprintf(&sb, "**Branch**: %s\n", session.GitBranch)

	if strings.TrimSpace(ctx.PromptsAndIntent) != "" {
		sb.WriteString("\n## Prompts & Intent\n")
		sb.WriteString(ctx.PromptsAndIntent)
		sb.WriteString("\n")
	}

	if len(ctx.KeyDecisions) > 0 {
		sb.WriteString("\n## Key Decisions\n")
		for _, d := range ctx.KeyDecisions {
			fmt.Fprintf(&sb, "### %s\n%s\n", d.Title, d.Reasoning)
		}
	}

	if len(ctx.ProblemsSolved) > 0 {
		sb.WriteString("\n## Problems Solved\n")
		for _, p := range ctx.ProblemsSolved {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}

	if len(ctx.Insights) > 0 {
		sb.WriteString("\n## Insights\n")
		for _, i := range ctx.Insights {
			fmt.Fprintf(&sb, "- %s\n", i)
		}
	}

	return sb.String()
}
