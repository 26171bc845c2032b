package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/metrics"
	"github.com/mindspace/backend/pkg/logger"
	"github.com/mindspace/backend/pkg/utils"
)

// EmbeddingCache stores embeddings keyed by text hash.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// CachedEmbedder wraps an Embedder with a cache. Cache failures degrade to
// the wrapped embedder; they never fail the query.
type CachedEmbedder struct {
	inner Embedder
	cache EmbeddingCache
	ttl   time.Duration
}

func NewCachedEmbedder(inner Embedder, cache EmbeddingCache, ttl time.Duration) *CachedEmbedder {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEmbedder{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := utils.HashString(text)

	embedding, hit, err := c.cache.GetEmbedding(ctx, hash)
	if err != nil {
		logger.Warn("Embedding cache lookup failed", zap.Error(err))
	}
	if hit {
		metrics.CacheHits.WithLabelValues("embedding").Inc()
		return embedding, nil
	}
	metrics.CacheMisses.WithLabelValues("embedding").Inc()

	embedding, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetEmbedding(ctx, hash, embedding, c.ttl); err != nil {
		logger.Warn("Failed to cache embedding", zap.Error(err))
	}
	return embedding, nil
}
