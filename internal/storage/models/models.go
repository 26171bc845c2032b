package models

import "time"

// ChatTurn is one persisted user/assistant exchange, annotated with the
// safety screening outcome for that message.
type ChatTurn struct {
	ID             string
	SessionID      string
	Message        string
	Response       string
	Severity       int
	SeverityLabel  string
	CrisisDetected bool
	SentimentScore float64
	SentimentLabel string
	Provider       string
	LatencyMS      int
	CreatedAt      time.Time
}

// CrisisEvent is the auditable safety record written whenever a message or
// assessment crosses the intervention threshold.
type CrisisEvent struct {
	ID           string
	SessionID    string
	Source       string // "message" or "assessment"
	Level        string
	Severity     int
	MatchedTerms []string
	CreatedAt    time.Time
}

// AssessmentRecord is a persisted questionnaire result.
type AssessmentRecord struct {
	ID          string
	SessionID   string
	Instrument  string
	RawScore    int
	MaxPossible int
	Severity    int
	Band        string
	CreatedAt   time.Time
}

// Document is one ingested reference source.
type Document struct {
	ID        string
	Path      string
	Title     string
	Checksum  string
	Chunks    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentChunk mirrors one vector-indexed passage for bookkeeping.
type DocumentChunk struct {
	ID         string
	DocID      string
	ChunkIndex int
	Text       string
	CreatedAt  time.Time
}
