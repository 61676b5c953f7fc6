package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

func TestPath_MatchesBuildPayload(t *testing.T) {
	session := domain.NormalizedSession{
		ID:        "test-session-abc",
		StartTime: time.Date(2025, 1, 22, 11, 0, 0, 0, time.UTC),
	}
	want := "/worklog/2025-01-22/test-session-abc"
	if got := Path(session); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
	if got := BuildPayload(session, domain.EnrichmentResult{}, "").Path; got != want {
		t.Errorf("BuildPayload path = %q, want %q", got, want)
	}
}

func TestBuildPayload_SignificantSession(t *testing.T) {
	session := domain.NormalizedSession{
		ID:        "test-session-abc",
		Project:   "portfolio",
		StartTime: time.Date(2025, 1, 22, 11, 0, 0, 0, time.UTC),
	}
	result := domain.EnrichmentResult{
		IsSignificant: true,
		Entry: &domain.WorklogEntry{
			Summary:  "Implemented two-tier ISR caching for worklog page",
			Decision: "used stale-while-revalidate",
			Problem:  "slow cold loads",
			Tags:     []string{"performance", "frontend"},
		},
	}

	payload := BuildPayload(session, result, "# Session: x")

	if payload.Path != "/worklog/2025-01-22/test-session-abc" {
		t.Errorf("Path = %q", payload.Path)
	}
	wantTags := map[string]bool{"worklog": true, "portfolio": true, "performance": true, "frontend": true}
	for _, tag := range payload.Tags {
		delete(wantTags, tag)
	}
	if len(wantTags) != 0 {
		t.Errorf("missing tags: %v (got %v)", wantTags, payload.Tags)
	}
	if payload.Metadata["public"] != "true" {
		t.Errorf("metadata.public = %q, want true", payload.Metadata["public"])
	}
	if payload.Metadata["summary"] != "Implemented two-tier ISR caching for worklog page" {
		t.Errorf("metadata.summary = %q", payload.Metadata["summary"])
	}
}

func TestBuildPayload_NonSignificantSession(t *testing.T) {
	session := domain.NormalizedSession{
		ID:        "s2",
		Project:   "portfolio",
		StartTime: time.Date(2025, 1, 22, 11, 0, 0, 0, time.UTC),
	}
	result := domain.EnrichmentResult{IsSignificant: false}

	payload := BuildPayload(session, result, "# Session: x")

	if payload.Metadata["public"] != "false" {
		t.Errorf("metadata.public = %q, want false", payload.Metadata["public"])
	}
	for _, tag := range payload.Tags {
		if tag != "worklog" && tag != "portfolio" {
			t.Errorf("unexpected tag %q for non-significant session", tag)
		}
	}
}

func TestPublish_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL, APIKey: "k"})
	err := p.Publish(context.Background(), domain.PublishPayload{Path: "/worklog/2025-01-22/s1"})
	if err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestPublish_SendsAuthHeaderAndBody(t *testing.T) {
	var gotAuth string
	var gotBody documentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if r.URL.Path != "/api/documents" {
			t.Errorf("path = %q, want /api/documents", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{URL: srv.URL, APIKey: "secret-key"})
	payload := domain.PublishPayload{
		Path:    "/worklog/2025-01-22/s1",
		Content: "body",
		Tags:    []string{"worklog"},
		Metadata: map[string]string{"source": "claude-code"},
	}
	if err := p.Publish(context.Background(), payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Path != payload.Path || gotBody.Content != payload.Content {
		t.Errorf("body = %+v", gotBody)
	}
}
