package normalize

import (
	"testing"
	"time"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

func ts(minute int) time.Time {
	return time.Date(2025, 1, 22, 10, minute, 0, 0, time.UTC)
}

func TestNormalize_DropsSidechainAndNonTurnRecords(t *testing.T) {
	entry := domain.SessionIndexEntry{
		SessionID:   "s1",
		ProjectPath: "/home/u/my-project",
		GitBranch:   "main",
		Summary:     "fix login bug",
	}
	records := []domain.RawRecord{
		{Type: domain.RecordSystem, Timestamp: ts(0)},
		{Type: domain.RecordUser, ContentText: "  please fix the bug  ", Timestamp: ts(1)},
		{Type: domain.RecordUser, IsSidechain: true, ContentText: "sub-agent chatter", Timestamp: ts(2)},
		{Type: domain.RecordToolUse, Timestamp: ts(3)},
		{Type: domain.RecordAssistant, ContentText: "done", Timestamp: ts(4)},
		{Type: domain.RecordToolResult, Timestamp: ts(5)},
		{Type: domain.RecordSummary, Timestamp: ts(6)},
	}

	got := Normalize(entry, records)

	if len(got.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, want 2: %+v", len(got.Turns), got.Turns)
	}
	if got.Turns[0].Role != domain.RoleUser || got.Turns[0].Content != "please fix the bug" {
		t.Errorf("Turns[0] = %+v", got.Turns[0])
	}
	if got.Turns[1].Role != domain.RoleAssistant || got.Turns[1].Content != "done" {
		t.Errorf("Turns[1] = %+v", got.Turns[1])
	}
	if got.Project != "my-project" {
		t.Errorf("Project = %q, want my-project", got.Project)
	}
	if got.GitBranch != "main" || got.Summary != "fix login bug" {
		t.Errorf("GitBranch/Summary = %q/%q", got.GitBranch, got.Summary)
	}
	if !got.StartTime.Equal(ts(1)) || !got.EndTime.Equal(ts(4)) {
		t.Errorf("StartTime/EndTime = %v/%v", got.StartTime, got.EndTime)
	}
}

func TestNormalize_AssistantBlocksDropThinkingAndToolUse(t *testing.T) {
	entry := domain.SessionIndexEntry{ProjectPath: "/home/u/proj"}
	records := []domain.RawRecord{
		{
			Type:      domain.RecordAssistant,
			Timestamp: ts(0),
			ContentBlock: []domain.ContentBlock{
				{Type: domain.BlockThinking, Text: "let me think"},
				{Type: domain.BlockText, Text: "first part"},
				{Type: domain.BlockToolUse, Text: "ignored"},
				{Type: domain.BlockText, Text: "second part"},
			},
		},
	}

	got := Normalize(entry, records)

	if len(got.Turns) != 1 {
		t.Fatalf("len(Turns) = %d, want 1", len(got.Turns))
	}
	want := "first part\n\nsecond part"
	if got.Turns[0].Content != want {
		t.Errorf("Content = %q, want %q", got.Turns[0].Content, want)
	}
}

func TestNormalize_EmptyAfterTrimIsSkipped(t *testing.T) {
	entry := domain.SessionIndexEntry{ProjectPath: "/home/u/proj"}
	records := []domain.RawRecord{
		{Type: domain.RecordUser, ContentText: "   ", Timestamp: ts(0)},
		{Type: domain.RecordAssistant, ContentBlock: []domain.ContentBlock{
			{Type: domain.BlockThinking, Text: "only thinking"},
		}, Timestamp: ts(1)},
	}

	got := Normalize(entry, records)

	if len(got.Turns) != 0 {
		t.Fatalf("len(Turns) = %d, want 0: %+v", len(got.Turns), got.Turns)
	}
	if !got.StartTime.IsZero() || !got.EndTime.IsZero() {
		t.Errorf("expected zero start/end time, got %v/%v", got.StartTime, got.EndTime)
	}
}

func TestNormalize_PreservesInputOrderNotTimestampOrder(t *testing.T) {
	entry := domain.SessionIndexEntry{ProjectPath: "/home/u/proj"}
	records := []domain.RawRecord{
		{Type: domain.RecordUser, ContentText: "second in time, first in file", Timestamp: ts(10)},
		{Type: domain.RecordAssistant, ContentText: "first in time, second in file", Timestamp: ts(1)},
	}

	got := Normalize(entry, records)

	if len(got.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, want 2", len(got.Turns))
	}
	if got.Turns[0].Content != "second in time, first in file" {
		t.Errorf("normalizer reordered turns by timestamp: %+v", got.Turns)
	}
	if !got.StartTime.Equal(ts(10)) || !got.EndTime.Equal(ts(1)) {
		t.Errorf("StartTime/EndTime should follow emission order, got %v/%v", got.StartTime, got.EndTime)
	}
}
