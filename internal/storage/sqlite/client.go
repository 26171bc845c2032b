package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/storage/models"
	"github.com/mindspace/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_history (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		response TEXT,
		severity INTEGER NOT NULL DEFAULT 0,
		severity_label TEXT,
		crisis_detected INTEGER NOT NULL DEFAULT 0,
		sentiment_score REAL,
		sentiment_label TEXT,
		provider TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_history(session_id);
	CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_history(created_at);

	CREATE TABLE IF NOT EXISTS crisis_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		source TEXT NOT NULL,
		level TEXT NOT NULL,
		severity INTEGER NOT NULL,
		matched_terms TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_crisis_session ON crisis_events(session_id);
	CREATE INDEX IF NOT EXISTS idx_crisis_created ON crisis_events(created_at);

	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		raw_score INTEGER NOT NULL,
		max_possible INTEGER NOT NULL,
		severity INTEGER NOT NULL,
		band TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments(session_id);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		path TEXT UNIQUE NOT NULL,
		title TEXT,
		checksum TEXT NOT NULL,
		chunks INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON document_chunks(doc_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertChatTurn(turn *models.ChatTurn) error {
	_, err := c.db.Exec(`
		INSERT INTO chat_history
			(id, session_id, message, response, severity, severity_label,
			 crisis_detected, sentiment_score, sentiment_label, provider, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Message, turn.Response,
		turn.Severity, turn.SeverityLabel, boolToInt(turn.CrisisDetected),
		turn.SentimentScore, turn.SentimentLabel, turn.Provider, turn.LatencyMS,
		turn.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat turn: %w", err)
	}
	return nil
}

// GetChatHistory returns the most recent turns for a session, oldest first.
func (c *Client) GetChatHistory(sessionID string, limit int) ([]models.ChatTurn, error) {
	rows, err := c.db.Query(`
		SELECT id, session_id, message, response, severity, severity_label,
		       crisis_detected, sentiment_score, sentiment_label, provider, latency_ms, created_at
		FROM chat_history
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		var t models.ChatTurn
		var crisis int
		var createdAt int64
		err := rows.Scan(&t.ID, &t.SessionID, &t.Message, &t.Response,
			&t.Severity, &t.SeverityLabel, &crisis,
			&t.SentimentScore, &t.SentimentLabel, &t.Provider, &t.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		t.CrisisDetected = crisis != 0
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat history: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (c *Client) InsertCrisisEvent(event *models.CrisisEvent) error {
	terms, err := json.Marshal(event.MatchedTerms)
	if err != nil {
		return fmt.Errorf("failed to marshal matched terms: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO crisis_events (id, session_id, source, level, severity, matched_terms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.SessionID, event.Source, event.Level, event.Severity,
		string(terms), event.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert crisis event: %w", err)
	}
	return nil
}

func (c *Client) InsertAssessment(record *models.AssessmentRecord) error {
	_, err := c.db.Exec(`
		INSERT INTO assessments
			(id, session_id, instrument, raw_score, max_possible, severity, band, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.SessionID, record.Instrument, record.RawScore,
		record.MaxPossible, record.Severity, record.Band, record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}
	return nil
}

// GetLatestAssessment returns the most recent assessment for the session, or
// nil when none exists.
func (c *Client) GetLatestAssessment(sessionID string) (*models.AssessmentRecord, error) {
	row := c.db.QueryRow(`
		SELECT id, session_id, instrument, raw_score, max_possible, severity, band, created_at
		FROM assessments
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		sessionID,
	)

	var r models.AssessmentRecord
	var createdAt int64
	err := row.Scan(&r.ID, &r.SessionID, &r.Instrument, &r.RawScore,
		&r.MaxPossible, &r.Severity, &r.Band, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest assessment: %w", err)
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}

// UpsertDocument records an ingested document; re-ingestion replaces the
// previous row and its chunks.
func (c *Client) UpsertDocument(doc *models.Document) error {
	_, err := c.db.Exec(`
		INSERT INTO documents (id, path, title, checksum, chunks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			checksum = excluded.checksum,
			chunks = excluded.chunks,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Path, doc.Title, doc.Checksum, doc.Chunks,
		doc.CreatedAt.Unix(), doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

func (c *Client) DeleteDocumentChunks(docID string) error {
	if _, err := c.db.Exec(`DELETE FROM document_chunks WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	return nil
}

func (c *Client) InsertChunk(chunk *models.DocumentChunk) error {
	_, err := c.db.Exec(`
		INSERT INTO document_chunks (id, doc_id, chunk_index, text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocID, chunk.ChunkIndex, chunk.Text, chunk.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// GetDocumentChecksum returns the stored checksum for a path, or empty string
// when the document has never been ingested.
func (c *Client) GetDocumentChecksum(path string) (string, error) {
	row := c.db.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path)
	var checksum string
	err := row.Scan(&checksum)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query document checksum: %w", err)
	}
	return checksum, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
