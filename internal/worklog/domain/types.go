// Package domain holds the data types shared by every stage of the
// worklog ingestion pipeline: raw records read off disk, the canonical
// normalized session, and the documents handed to the content store.
package domain

import "time"

// RecordType is the `type` discriminator of a RawRecord.
type RecordType string

const (
	RecordUser       RecordType = "user"
	RecordAssistant  RecordType = "assistant"
	RecordSystem     RecordType = "system"
	RecordSummary    RecordType = "summary"
	RecordToolUse    RecordType = "tool_use"
	RecordToolResult RecordType = "tool_result"
)

// BlockType is the `type` tag of one block inside an assistant message's
// content array.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockThinking BlockType = "thinking"
	BlockToolUse  BlockType = "tool_use"
)

// ContentBlock is one element of an assistant message's content array.
// Only Text is populated for BlockText; other block types carry payloads
// the normalizer never inspects.
type ContentBlock struct {
	Type BlockType
	Text string
}

// RawRecord is one parsed line of a session JSONL file. Content is kept as
// a tagged union: at most one of ContentText / ContentBlock is set,
// mirroring the third-party tool's "string or array" message shape.
type RawRecord struct {
	Type         RecordType
	UUID         string
	ParentUUID   string
	Timestamp    time.Time
	SessionID    string
	IsSidechain  bool
	ContentText  string
	ContentBlock []ContentBlock
	HasContent   bool // false when the record carries no message payload (e.g. a bare tool_result)
}

// SessionIndexEntry is one row of a project's sessions-index.json.
type SessionIndexEntry struct {
	SessionID    string
	FullPath     string
	FileMtimeMS  int64
	FirstPrompt  string
	Summary      string
	MessageCount int
	Created      time.Time
	Modified     time.Time
	GitBranch    string
	ProjectPath  string
	IsSidechain  bool
}

// SessionsIndex is the parsed contents of one project's sessions-index.json.
type SessionsIndex struct {
	Version      int
	Entries      []SessionIndexEntry
	OriginalPath string
}

// Role is a Turn's speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one canonical conversation unit after normalization.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// NormalizedSession is the canonical, reshaped form of a session produced
// by the Normalizer and consumed unmodified (by contract) through the
// Formatter.
type NormalizedSession struct {
	ID        string
	Turns     []Turn
	Project   string
	StartTime time.Time
	EndTime   time.Time
	Summary   string
	GitBranch string
}

// WorklogEntry is the short, structured payload surfaced in downstream
// UIs. Present only when a session is classified significant.
type WorklogEntry struct {
	Summary  string
	Decision string
	Problem  string
	Tags     []string
}

// KeyDecision is one entry of a ContextDoc's decision log.
type KeyDecision struct {
	Title     string
	Reasoning string
}

// ContextDoc is the longer Markdown-rendered document produced for every
// processed session, regardless of significance.
type ContextDoc struct {
	Title            string
	PromptsAndIntent string
	KeyDecisions     []KeyDecision
	ProblemsSolved   []string
	Insights         []string
}

// EnrichmentResult is the Enricher's output: the judge's classification
// plus the always-present context document.
type EnrichmentResult struct {
	IsSignificant bool
	Entry         *WorklogEntry
	Context       ContextDoc
}

// PublishPayload is the document handed to the content store. Path alone
// determines identity: publication is an upsert keyed by Path.
type PublishPayload struct {
	Path     string
	Content  string
	Tags     []string
	Metadata map[string]string
}

// ProcessResult is the outcome of running one session through the
// pipeline, reported back to the batch runner and its caller.
type ProcessResult struct {
	SessionID      string
	Project        string
	Published      bool
	IsSignificant  bool
	Summary        string
	SkippedReason  string
}
