package cmd

import (
	"testing"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

func TestCountResults(t *testing.T) {
	results := []domain.ProcessResult{
		{SessionID: "a", Published: true, IsSignificant: true},
		{SessionID: "b", Published: true, IsSignificant: false},
		{SessionID: "c", SkippedReason: "too few turns"},
		{SessionID: "d", SkippedReason: "too few turns"},
		{SessionID: "e", SkippedReason: "sanitized away"},
	}

	counts := countResults(results)

	if counts.Processed != 5 {
		t.Errorf("Processed = %d, want 5", counts.Processed)
	}
	if counts.Published != 2 {
		t.Errorf("Published = %d, want 2", counts.Published)
	}
	if counts.Significant != 1 {
		t.Errorf("Significant = %d, want 1", counts.Significant)
	}
	if counts.SkippedByReason["too few turns"] != 2 {
		t.Errorf("SkippedByReason[too few turns] = %d, want 2", counts.SkippedByReason["too few turns"])
	}
	if counts.SkippedByReason["sanitized away"] != 1 {
		t.Errorf("SkippedByReason[sanitized away] = %d, want 1", counts.SkippedByReason["sanitized away"])
	}
}

func TestCountResults_Empty(t *testing.T) {
	counts := countResults(nil)
	if counts.Processed != 0 || counts.Published != 0 || counts.Significant != 0 {
		t.Errorf("unexpected non-zero counts for empty input: %+v", counts)
	}
	if len(counts.SkippedByReason) != 0 {
		t.Errorf("expected empty SkippedByReason map, got %+v", counts.SkippedByReason)
	}
}
