package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/pkg/logger"
)

// Gemini is the secondary completion backend, reached through the Google
// GenAI API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Completion provider initialized",
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Model),
	)

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) contents(payload prompt.Payload) ([]*genai.Content, *genai.GenerateContentConfig) {
	temperature := g.temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: g.maxTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: payload.SystemInstruction}},
		},
	}
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: payload.UserPrompt()}}},
	}
	return contents, config
}

func (g *Gemini) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	contents, config := g.contents(payload)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini completion returned empty response")
	}
	return text, nil
}

func (g *Gemini) CompleteStream(ctx context.Context, payload prompt.Payload, emit func(token string) error) error {
	contents, config := g.contents(payload)

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return fmt.Errorf("gemini stream failed: %w", err)
		}
		if token := resp.Text(); token != "" {
			if err := emit(token); err != nil {
				return err
			}
		}
	}
	return nil
}
