package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/mindspace/backend/pkg/logger"
)

// Passage is one retrieved reference snippet, most similar first in any
// sequence returned by a Retriever.
type Passage struct {
	Text       string
	Similarity float32
	SourceID   string
}

// Embedder turns text into a vector. The same embedder must be used at index
// time and at query time; mixing embedding models silently degrades relevance
// without any error signal.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the similarity index port. Search returns up to topK
// passages in strictly descending similarity order, ties broken by insertion
// order.
type VectorStore interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]Passage, error)
}

// Retriever answers queries against a pre-built document index. Retrieval is
// best effort: an empty or unreachable index degrades to zero context rather
// than failing the pipeline.
type Retriever struct {
	embedder Embedder
	store    VectorStore
	topK     int
}

// NewRetriever wires an embedder and vector store. topK <= 0 falls back to 4.
func NewRetriever(embedder Embedder, store VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// Retrieve embeds the query and returns the top-k most similar passages.
// Embedding or store failures are logged and reported as zero passages.
func (r *Retriever) Retrieve(ctx context.Context, query string) []Passage {
	if r.store == nil || r.embedder == nil {
		return nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed, degrading to zero context", zap.Error(err))
		return nil
	}

	passages, err := r.store.Search(ctx, embedding, r.topK)
	if err != nil {
		logger.Warn("Vector search failed, degrading to zero context", zap.Error(err))
		return nil
	}

	logger.Debug("Passages retrieved",
		zap.Int("topK", r.topK),
		zap.Int("results", len(passages)),
	)

	return passages
}
