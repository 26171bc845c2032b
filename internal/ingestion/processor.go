package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/storage/models"
	"github.com/mindspace/backend/internal/storage/sqlite"
	"github.com/mindspace/backend/internal/vector/milvus"
	"github.com/mindspace/backend/pkg/logger"
	"github.com/mindspace/backend/pkg/retry"
	"github.com/mindspace/backend/pkg/utils"
)

// BatchEmbedder produces embeddings for chunk batches during index builds.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// PassageIndex is the write side of the vector index.
type PassageIndex interface {
	Insert(ctx context.Context, records []milvus.PassageRecord) error
	DeleteSource(ctx context.Context, sourceID string) error
}

// Processor ingests reference documents (coping guides, psychoeducation
// material) into the vector index and the relational store.
type Processor struct {
	db           *sqlite.Client
	index        PassageIndex
	embedder     BatchEmbedder
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(db *sqlite.Client, index PassageIndex, embedder BatchEmbedder, chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 50
	}
	return &Processor{
		db:           db,
		index:        index,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// BuildIndex ingests every supported document under dir. Individual file
// failures are logged and skipped so one bad document does not abort the
// whole build. Returns the number of documents processed.
func (p *Processor) BuildIndex(ctx context.Context, dir string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md", ".html", ".htm":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk document directory: %w", err)
	}

	processed := 0
	for _, path := range paths {
		if err := p.ProcessFile(ctx, path); err != nil {
			logger.Error("Failed to process document", zap.String("path", path), zap.Error(err))
			continue
		}
		processed++
	}

	logger.Info("Index build complete",
		zap.Int("documents", processed),
		zap.Int("candidates", len(paths)),
	)
	return processed, nil
}

// ProcessFile ingests a single document. Re-running on an unchanged file is
// a no-op; a changed file replaces its previous chunks.
func (p *Processor) ProcessFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	checksum := utils.HashString(string(raw))
	existing, err := p.db.GetDocumentChecksum(path)
	if err != nil {
		return err
	}
	if existing == checksum {
		logger.Debug("Document unchanged, skipping", zap.String("path", path))
		return nil
	}

	text, title := p.extractText(path, string(raw))
	if text == "" {
		return fmt.Errorf("no content extracted from %s", path)
	}
	if title == "" {
		title = filepath.Base(path)
	}

	chunks := p.chunkText(text)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced for %s", path)
	}
	logger.Info("Document chunked", zap.String("path", path), zap.Int("chunks", len(chunks)))

	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = logger.Get()
	embeddings, err := retry.DoWithResult(ctx, retryCfg, func() ([][]float32, error) {
		return p.embedder.EmbedBatch(ctx, chunks)
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	docID := utils.HashString(path)

	// Replace any previous version of this document before inserting.
	if err := p.index.DeleteSource(ctx, docID); err != nil {
		return fmt.Errorf("failed to clear previous chunks: %w", err)
	}
	if err := p.db.DeleteDocumentChunks(docID); err != nil {
		return err
	}

	now := time.Now()
	records := make([]milvus.PassageRecord, 0, len(chunks))
	for i, chunkText := range chunks {
		chunkID := uuid.NewString()
		records = append(records, milvus.PassageRecord{
			ID:        chunkID,
			SourceID:  docID,
			Text:      chunkText,
			Embedding: embeddings[i],
			CreatedAt: now,
		})

		dbChunk := &models.DocumentChunk{
			ID:         chunkID,
			DocID:      docID,
			ChunkIndex: i,
			Text:       chunkText,
			CreatedAt:  now,
		}
		if err := p.db.InsertChunk(dbChunk); err != nil {
			return err
		}
	}

	if err := p.index.Insert(ctx, records); err != nil {
		return fmt.Errorf("failed to insert into vector index: %w", err)
	}

	doc := &models.Document{
		ID:        docID,
		Path:      path,
		Title:     title,
		Checksum:  checksum,
		Chunks:    len(chunks),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.db.UpsertDocument(doc); err != nil {
		return err
	}

	logger.Info("Document processed",
		zap.String("doc_id", docID),
		zap.String("title", title),
		zap.Int("chunks", len(records)),
	)
	return nil
}

func (p *Processor) extractText(path, raw string) (text, title string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return p.cleanHTML(raw)
	case ".md":
		return strings.TrimSpace(raw), markdownTitle(raw)
	default:
		return strings.TrimSpace(raw), ""
	}
}

func (p *Processor) cleanHTML(html string) (text, title string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text = doc.Find("body").Text()
	text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")
	return strings.TrimSpace(text), title
}

func markdownTitle(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// chunkText splits on word boundaries into chunks of roughly chunkSize
// characters with chunkOverlap characters carried between neighbors.
func (p *Processor) chunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder

	for _, word := range words {
		if current.Len()+len(word)+1 > p.chunkSize && current.Len() > 0 {
			chunk := strings.TrimSpace(current.String())
			chunks = append(chunks, chunk)

			overlap := tailChars(chunk, p.chunkOverlap)
			current.Reset()
			if overlap != "" {
				current.WriteString(overlap + " ")
			}
		}
		current.WriteString(word + " ")
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}

// tailChars returns the last whole words of chunk totaling at most n
// characters.
func tailChars(chunk string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(chunk)
	total := 0
	start := len(words)
	for i := len(words) - 1; i >= 0; i-- {
		total += len(words[i]) + 1
		if total > n {
			break
		}
		start = i
	}
	return strings.Join(words[start:], " ")
}
