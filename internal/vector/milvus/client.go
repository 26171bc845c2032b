package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/retrieval"
	"github.com/mindspace/backend/pkg/logger"
)

// Client stores reference passages in a Milvus/Zilliz collection and serves
// the retrieval.VectorStore port.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// PassageRecord is one chunk inserted during index build.
type PassageRecord struct {
	ID        string
	SourceID  string
	Text      string
	Embedding []float32
	CreatedAt time.Time
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

// EnsureCollection creates and loads the passage collection if it does not
// exist yet. Safe to call on every startup.
func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return m.client.LoadCollection(ctx, m.collectionName, false)
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Mental health reference passage embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "4096"},
			},
			{
				Name:       "source_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:     "created_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Passage collection created and loaded", zap.String("collection", m.collectionName))
	return nil
}

// Insert writes passage chunks produced by the offline ingestion step.
func (m *Client) Insert(ctx context.Context, records []PassageRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	texts := make([]string, len(records))
	sourceIDs := make([]string, len(records))
	createdAts := make([]int64, len(records))

	for i, r := range records {
		ids[i] = r.ID
		embeddings[i] = r.Embedding
		texts[i] = r.Text
		sourceIDs[i] = r.SourceID
		createdAts[i] = r.CreatedAt.Unix()
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", ids),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("source_id", sourceIDs),
		entity.NewColumnInt64("created_at", createdAts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert passages: %w", err)
	}

	if err := m.client.Flush(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Passages inserted into vector index", zap.Int("count", len(records)))
	return nil
}

// DeleteSource removes every chunk ingested from the given source so the
// ingestion step can re-run idempotently.
func (m *Client) DeleteSource(ctx context.Context, sourceID string) error {
	expr := fmt.Sprintf(`source_id == "%s"`, sourceID)
	if err := m.client.Delete(ctx, m.collectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete source passages: %w", err)
	}
	return nil
}

// Search returns up to topK passages in descending similarity order.
func (m *Client) Search(ctx context.Context, embedding []float32, topK int) ([]retrieval.Passage, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		"",
		[]string{"chunk_id", "text", "source_id"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	passages := make([]retrieval.Passage, 0, topK)
	for _, sr := range searchResult {
		textCol := sr.Fields.GetColumn("text")
		sourceCol := sr.Fields.GetColumn("source_id")
		for i := 0; i < sr.ResultCount; i++ {
			text, _ := textCol.Get(i)
			sourceID, _ := sourceCol.Get(i)
			passages = append(passages, retrieval.Passage{
				Text:       text.(string),
				Similarity: sr.Scores[i],
				SourceID:   sourceID.(string),
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(passages)),
	)

	return passages, nil
}
