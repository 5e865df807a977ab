package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini embedder
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// ModelName is the embedding model to use, e.g. "text-embedding-004".
	ModelName string
}

// GeminiEmbedder implements the Embedder interface using Google's Gemini
// embedding models.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates a GeminiEmbedder. Returns ErrInvalidConfig if
// the API key or model name is missing.
func NewGeminiEmbedder(ctx context.Context, config GeminiConfig, logger *slog.Logger) (*GeminiEmbedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", ErrInvalidConfig)
	}

	if config.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &GeminiEmbedder{
		client: client,
		model:  config.ModelName,
		logger: logger.With("component", "gemini_embedder"),
	}, nil
}

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini returned an empty embedding for %d chars of text", len(text))
	}

	e.logger.Debug("text embedded",
		"model", e.model,
		"text_length", len(text),
		"dimensions", len(resp.Embeddings[0].Values))

	return resp.Embeddings[0].Values, nil
}
