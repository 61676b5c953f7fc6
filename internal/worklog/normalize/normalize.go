// Package normalize converts a raw session record stream into the
// canonical NormalizedSession shape the rest of the pipeline consumes.
package normalize

import (
	"path/filepath"
	"strings"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

// Normalize builds a NormalizedSession from a session's raw records and
// its sessions-index.json entry, per spec.md §4.2.
func Normalize(entry domain.SessionIndexEntry, records []domain.RawRecord) domain.NormalizedSession {
	session := domain.NormalizedSession{
		ID:        entry.SessionID,
		Project:   filepath.Base(entry.ProjectPath),
		GitBranch: entry.GitBranch,
		Summary:   entry.Summary,
	}

	for _, rec := range records {
		if rec.IsSidechain {
			continue
		}

		switch rec.Type {
		case domain.RecordUser:
			content := strings.TrimSpace(rec.ContentText)
			if content == "" {
				continue
			}
			session.Turns = append(session.Turns, domain.Turn{
				Role:      domain.RoleUser,
				Content:   content,
				Timestamp: rec.Timestamp,
			})

		case domain.RecordAssistant:
			content := assistantContent(rec)
			if content == "" {
				continue
			}
			session.Turns = append(session.Turns, domain.Turn{
				Role:      domain.RoleAssistant,
				Content:   content,
				Timestamp: rec.Timestamp,
			})

		default:
			// system, summary, tool_use, tool_result records carry no turn.
		}
	}

	if len(session.Turns) > 0 {
		session.StartTime = session.Turns[0].Timestamp
		session.EndTime = session.Turns[len(session.Turns)-1].Timestamp
	}

	return session
}

// assistantContent derives the emitted turn content for an assistant
// record, handling both the string-payload and block-sequence shapes.
func assistantContent(rec domain.RawRecord) string {
	if rec.ContentBlock == nil {
		return strings.TrimSpace(rec.ContentText)
	}

	var parts []string
	for _, b := range rec.ContentBlock {
		if b.Type != domain.BlockText {
			continue
		}
		if text := strings.TrimSpace(b.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
