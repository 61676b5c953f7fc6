// Package source implements the Source Adapter: it reads the coding
// assistant's on-disk session store (one directory per project, one
// sessions-index.json plus one JSONL file per session) and hands back
// RawRecord streams for the rest of the pipeline to normalize.
//
// The adapter never writes to the store; the third-party tool is the
// sole writer and appends to it continuously, so reads here tolerate a
// missing index (treated as "no sessions available") but not a malformed
// one (fatal for that file, per spec.md §7's source-malformed taxonomy).
package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/worklog-ingest/internal/pathutil"
	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

// ErrAmbiguousSession is returned by GetSessionByIDStrict when a prefix
// matches more than one entry in the index; GetSessionByID returns nil
// instead.
var ErrAmbiguousSession = errors.New("session id prefix matches more than one session")

// minMessageCount is the eligibility threshold from spec.md §4.1: sessions
// with exactly 5 messages pass; 4 do not.
const minMessageCount = 5

// agentSessionPrefix marks sub-agent sessions the eligibility filter excludes.
const agentSessionPrefix = "agent-"

// Adapter reads the on-disk session store rooted at BaseDir.
type Adapter struct {
	BaseDir string
}

// New creates a Source Adapter rooted at baseDir (e.g. ~/.claude/projects).
func New(baseDir string) *Adapter {
	return &Adapter{BaseDir: baseDir}
}

// projectDir returns the store's directory for a given project path,
// using the lossy-but-stable encoding from pathutil.
func (a *Adapter) projectDir(projectPath string) string {
	return filepath.Join(a.BaseDir, pathutil.EncodeProjectPath(projectPath))
}

// ListProjects enumerates immediate subdirectories of BaseDir that carry a
// readable, JSON-valid sessions-index.json naming an originalPath. Any
// subdirectory failing that test is skipped silently (source-absent, not
// an error).
func (a *Adapter) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(a.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read base dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		idx, err := a.readIndexFile(filepath.Join(a.BaseDir, entry.Name(), "sessions-index.json"))
		if err != nil || idx == nil || idx.OriginalPath == "" {
			if err != nil {
				log.Debug().Err(err).Str("dir", entry.Name()).Msg("skipping unreadable sessions index")
			}
			continue
		}
		projects = append(projects, idx.OriginalPath)
	}
	return projects, nil
}

// ReadSessionsIndex returns the parsed index for a project, or nil if the
// index file does not exist. Any other I/O or parse error propagates.
func (a *Adapter) ReadSessionsIndex(projectPath string) (*domain.SessionsIndex, error) {
	path := filepath.Join(a.projectDir(projectPath), "sessions-index.json")
	return a.readIndexFile(path)
}

func (a *Adapter) readIndexFile(path string) (*domain.SessionsIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions index %s: %w", path, err)
	}

	var raw rawSessionsIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sessions index %s: %w", path, err)
	}

	idx := &domain.SessionsIndex{
		Version:      raw.Version,
		OriginalPath: raw.OriginalPath,
	}
	for _, e := range raw.Entries {
		idx.Entries = append(idx.Entries, e.toDomain())
	}
	return idx, nil
}

// Eligible applies the eligibility filter from spec.md §4.1: an entry
// with isSidechain true, fewer than 5 messages, or a sessionId starting
// with "agent-" is excluded everywhere in the pipeline, not just when
// resolving a single latest session. The filter is idempotent and
// commutes with set union over index entries (per spec.md §8), so the
// batch runner and the single-session lookups below can share it freely.
func Eligible(e domain.SessionIndexEntry) bool {
	if e.IsSidechain {
		return false
	}
	if e.MessageCount < minMessageCount {
		return false
	}
	if strings.HasPrefix(e.SessionID, agentSessionPrefix) {
		return false
	}
	return true
}

// GetLatestSession returns the eligible entry with the maximum Modified
// timestamp, or nil if none are eligible.
func (a *Adapter) GetLatestSession(projectPath string) (*domain.SessionIndexEntry, error) {
	idx, err := a.ReadSessionsIndex(projectPath)
	if err != nil || idx == nil {
		return nil, err
	}

	var latest *domain.SessionIndexEntry
	for i := range idx.Entries {
		e := idx.Entries[i]
		if !Eligible(e) {
			continue
		}
		if latest == nil || e.Modified.After(latest.Modified) {
			latest = &idx.Entries[i]
		}
	}
	return latest, nil
}

// GetSessionByID matches a session by exact id, falling back to a strict
// prefix match. If the prefix matches more than one entry, the result is
// nil (ambiguous) per spec.md §4.1/§9 — the spec preserves this observed
// behavior rather than surfacing ErrAmbiguousSession to callers that only
// want the entry; callers that care can call GetSessionByIDStrict.
func (a *Adapter) GetSessionByID(projectPath, id string) (*domain.SessionIndexEntry, error) {
	entry, err := a.GetSessionByIDStrict(projectPath, id)
	if errors.Is(err, ErrAmbiguousSession) {
		return nil, nil
	}
	return entry, err
}

// GetSessionByIDStrict is GetSessionByID but returns ErrAmbiguousSession
// instead of silently returning nil when the prefix match is ambiguous.
func (a *Adapter) GetSessionByIDStrict(projectPath, id string) (*domain.SessionIndexEntry, error) {
	idx, err := a.ReadSessionsIndex(projectPath)
	if err != nil || idx == nil {
		return nil, err
	}

	for i := range idx.Entries {
		if idx.Entries[i].SessionID == id {
			return &idx.Entries[i], nil
		}
	}

	var matches []*domain.SessionIndexEntry
	for i := range idx.Entries {
		if strings.HasPrefix(idx.Entries[i].SessionID, id) {
			matches = append(matches, &idx.Entries[i])
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousSession
	}
}

// ReadSessionEntries reads and parses every record of a session's JSONL
// file. A malformed line is fatal for the file (source-malformed, per
// spec.md §7); blank lines are ignored.
func (a *Adapter) ReadSessionEntries(entry domain.SessionIndexEntry) ([]domain.RawRecord, error) {
	f, err := os.Open(entry.FullPath)
	if err != nil {
		return nil, fmt.Errorf("open session file %s: %w", entry.FullPath, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	var records []domain.RawRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", entry.FullPath, lineNo, err)
		}

		rec, err := raw.toDomain()
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", entry.FullPath, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session file %s: %w", entry.FullPath, err)
	}

	return records, nil
}

// --- on-disk JSON shapes ---

type rawSessionsIndex struct {
	Version      int                 `json:"version"`
	Entries      []rawSessionsEntry  `json:"entries"`
	OriginalPath string              `json:"originalPath"`
}

type rawSessionsEntry struct {
	SessionID    string `json:"sessionId"`
	FullPath     string `json:"fullPath"`
	FileMtime    int64  `json:"fileMtime"`
	FirstPrompt  string `json:"firstPrompt"`
	Summary      string `json:"summary"`
	MessageCount int    `json:"messageCount"`
	Created      string `json:"created"`
	Modified     string `json:"modified"`
	GitBranch    string `json:"gitBranch"`
	ProjectPath  string `json:"projectPath"`
	IsSidechain  bool   `json:"isSidechain"`
}

func (e rawSessionsEntry) toDomain() domain.SessionIndexEntry {
	return domain.SessionIndexEntry{
		SessionID:    e.SessionID,
		FullPath:     e.FullPath,
		FileMtimeMS:  e.FileMtime,
		FirstPrompt:  e.FirstPrompt,
		Summary:      e.Summary,
		MessageCount: e.MessageCount,
		Created:      parseTimestamp(e.Created),
		Modified:     parseTimestamp(e.Modified),
		GitBranch:    e.GitBranch,
		ProjectPath:  e.ProjectPath,
		IsSidechain:  e.IsSidechain,
	}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Tolerate a bare-seconds ISO-8601 form too.
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2
		}
		log.Debug().Err(err).Str("value", s).Msg("unparsable timestamp")
		return time.Time{}
	}
	return t
}

type rawRecord struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid"`
	ParentUUID  *string         `json:"parentUuid"`
	Timestamp   string          `json:"timestamp"`
	SessionID   string          `json:"sessionId"`
	IsSidechain bool            `json:"isSidechain"`
	Message     json.RawMessage `json:"message"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type rawBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (r rawRecord) toDomain() (domain.RawRecord, error) {
	rec := domain.RawRecord{
		Type:        domain.RecordType(r.Type),
		UUID:        r.UUID,
		Timestamp:   parseTimestamp(r.Timestamp),
		SessionID:   r.SessionID,
		IsSidechain: r.IsSidechain,
	}
	if r.ParentUUID != nil {
		rec.ParentUUID = *r.ParentUUID
	}

	if len(r.Message) == 0 {
		return rec, nil
	}

	var msg rawMessage
	if err := json.Unmarshal(r.Message, &msg); err != nil {
		return domain.RawRecord{}, fmt.Errorf("parse message: %w", err)
	}
	if len(msg.Content) == 0 {
		return rec, nil
	}

	// Content is either a plain string or an ordered block sequence.
	var asString string
	if err := json.Unmarshal(msg.Content, &asString); err == nil {
		rec.ContentText = asString
		rec.HasContent = true
		return rec, nil
	}

	var asBlocks []rawBlock
	if err := json.Unmarshal(msg.Content, &asBlocks); err == nil {
		for _, b := range asBlocks {
			rec.ContentBlock = append(rec.ContentBlock, domain.ContentBlock{
				Type: domain.BlockType(b.Type),
				Text: b.Text,
			})
		}
		rec.HasContent = true
		return rec, nil
	}

	return domain.RawRecord{}, fmt.Errorf("message content is neither string nor block array")
}
