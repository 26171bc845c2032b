package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/pkg/logger"
)

// OpenAICompatible talks to any OpenAI-compatible chat completion API. The
// primary deployment points it at Groq's endpoint; it also serves as the
// embedding backend for retrieval and ingestion.
type OpenAICompatible struct {
	client         *openai.Client
	name           string
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
}

type OpenAIConfig struct {
	Name           string
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
}

func NewOpenAICompatible(cfg OpenAIConfig) *OpenAICompatible {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Info("Completion provider initialized",
		zap.String("provider", cfg.Name),
		zap.String("model", cfg.Model),
	)

	return &OpenAICompatible{
		client:         openai.NewClientWithConfig(clientCfg),
		name:           cfg.Name,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
	}
}

func (p *OpenAICompatible) Name() string {
	return p.name
}

func (p *OpenAICompatible) request(payload prompt.Payload) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: payload.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: payload.UserPrompt()},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
}

func (p *OpenAICompatible) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(payload))
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s completion returned no choices", p.name)
	}

	logger.Debug("Completion generated",
		zap.String("provider", p.name),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAICompatible) CompleteStream(ctx context.Context, payload prompt.Payload, emit func(token string) error) error {
	req := p.request(payload)
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("%s stream open failed: %w", p.name, err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s stream failed: %w", p.name, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if token := resp.Choices[0].Delta.Content; token != "" {
			if err := emit(token); err != nil {
				return err
			}
		}
	}
}

// Embed generates the query/passage embedding used by the retriever and the
// ingestion step. Index-time and query-time embeddings must come from the
// same model.
func (p *OpenAICompatible) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%s embedding failed: %w", p.name, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s embedding returned no data", p.name)
	}

	embedding := make([]float32, len(resp.Data[0].Embedding))
	copy(embedding, resp.Data[0].Embedding)
	return embedding, nil
}

// EmbedBatch embeds texts in bounded batches during offline index builds.
func (p *OpenAICompatible) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const batchSize = 100
	embeddings := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(p.embeddingModel),
		})
		if err != nil {
			return nil, fmt.Errorf("%s batch embedding failed: %w", p.name, err)
		}

		for _, data := range resp.Data {
			embedding := make([]float32, len(data.Embedding))
			copy(embedding, data.Embedding)
			embeddings = append(embeddings, embedding)
		}
	}

	return embeddings, nil
}
