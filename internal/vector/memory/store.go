// Package memory provides an in-process vector store. It backs tests and
// small corpora; the milvus adapter serves production deployments behind the
// same retrieval.VectorStore port.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/mindspace/backend/internal/retrieval"
)

type entry struct {
	sourceID  string
	text      string
	embedding []float32
	seq       int
}

// Store is a cosine-similarity index. Writes happen during the offline
// ingestion step; request-path reads are lock-protected and cheap.
type Store struct {
	mu      sync.RWMutex
	entries []entry
	bySrc   map[string][]int
	nextSeq int
}

func NewStore() *Store {
	return &Store{bySrc: make(map[string][]int)}
}

// Insert adds one passage under the given source ID.
func (s *Store) Insert(ctx context.Context, sourceID, text string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry{
		sourceID:  sourceID,
		text:      text,
		embedding: embedding,
		seq:       s.nextSeq,
	})
	s.bySrc[sourceID] = append(s.bySrc[sourceID], s.nextSeq)
	s.nextSeq++
	return nil
}

// DeleteSource removes every passage inserted under sourceID. Used by the
// idempotent re-ingestion path.
func (s *Store) DeleteSource(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bySrc[sourceID]; !ok {
		return nil
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.sourceID != sourceID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	delete(s.bySrc, sourceID)
	return nil
}

// Search returns up to topK passages by descending cosine similarity, ties
// broken by insertion order. An empty store returns an empty slice.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]retrieval.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry entry
		score float32
	}

	results := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		results = append(results, scored{entry: e, score: cosineSimilarity(embedding, e.embedding)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].entry.seq < results[j].entry.seq
	})

	if len(results) > topK {
		results = results[:topK]
	}

	passages := make([]retrieval.Passage, len(results))
	for i, r := range results {
		passages[i] = retrieval.Passage{
			Text:       r.entry.text,
			Similarity: r.score,
			SourceID:   r.entry.sourceID,
		}
	}
	return passages, nil
}

// Len reports the number of indexed passages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cosineSimilarity clamps at zero so scores stay within [0,1] for the
// embedding models in use.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	return float32(sim)
}
