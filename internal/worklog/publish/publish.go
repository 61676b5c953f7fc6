// Package publish sends rendered worklog documents to the content
// store's HTTP API.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

// Config addresses the content store.
type Config struct {
	URL    string
	APIKey string
}

// Publisher posts documents to <memory.url>/api/documents.
type Publisher struct {
	cfg    Config
	client *http.Client
}

// New constructs a Publisher with a 30s default timeout, per spec.md §5's
// I/O deadline; callers pass a shorter-lived context per call when needed.
func New(cfg Config) *Publisher {
	return &Publisher{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type documentRequest struct {
	Path     string            `json:"path"`
	Content  string            `json:"content"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
}

// Publish uploads payload. A non-2xx response is returned as an error;
// the publisher does not retry.
func (p *Publisher) Publish(ctx context.Context, payload domain.PublishPayload) error {
	body := documentRequest{
		Path:     payload.Path,
		Content:  payload.Content,
		Tags:     payload.Tags,
		Metadata: payload.Metadata,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("publish: encode body: %w", err)
	}

	url := strings.TrimRight(p.cfg.URL, "/") + "/api/documents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("publish: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("publish: content store returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Path derives a session's deterministic content-store path from its
// start-time date and session id, per spec.md §4.6/§8. Callers that need
// to know a session's path before the rest of its payload exists (e.g.
// to consult a published-document ledger) can call this directly.
func Path(session domain.NormalizedSession) string {
	date := session.StartTime.UTC().Format("2006-01-02")
	return fmt.Sprintf("/worklog/%s/%s", date, session.ID)
}

// BuildPayload assembles the PublishPayload for a session given its
// rendered content and enrichment result, per spec.md §4.6.
func BuildPayload(session domain.NormalizedSession, result domain.EnrichmentResult, content string) domain.PublishPayload {
	path := Path(session)
	date := session.StartTime.UTC().Format("2006-01-02")

	tags := []string{"worklog", session.Project}

	summary, decision, problem, entryTags := "", "", "", ""
	if result.Entry != nil {
		summary = result.Entry.Summary
		decision = result.Entry.Decision
		problem = result.Entry.Problem
		entryTags = strings.Join(result.Entry.Tags, ",")
		if result.IsSignificant {
			tags = append(tags, result.Entry.Tags...)
		}
	}

	public := "false"
	if result.IsSignificant {
		public = "true"
	}

	return domain.PublishPayload{
		Path:    path,
		Content: content,
		Tags:    tags,
		Metadata: map[string]string{
			"source":    "claude-code",
			"sessionId": session.ID,
			"project":   session.Project,
			"date":      date,
			"public":    public,
			"summary":   summary,
			"decision":  decision,
			"problem":   problem,
			"entryTags": entryTags,
			"links":     "",
		},
	}
}
