// Package inference wraps the OpenAI-compatible server that hosts the
// generation, embedding, and translation models. All calls go through small
// interfaces so services can be tested with fakes.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected width
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Embedder turns text into a fixed-width vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config wires the clients to one OpenAI-compatible endpoint.
type Config struct {
	BaseURL             string
	APIKey              string
	GenerationModel     string
	EmbeddingModel      string
	EmbeddingDimensions int
	TranslationModelEN  string
	TranslationModelSW  string
}

func newAPIClient(cfg Config) *openai.Client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// EmbeddingClient generates query embeddings with the corpus embedding model.
type EmbeddingClient struct {
	api        *openai.Client
	model      string
	dimensions int
}

func NewEmbeddingClient(cfg Config) *EmbeddingClient {
	return &EmbeddingClient{
		api:        newAPIClient(cfg),
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDimensions,
	}
}

// Embed returns the embedding for text, enforcing the configured width.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	embedding := resp.Data[0].Embedding
	if c.dimensions > 0 && len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}
	return embedding, nil
}

// GenerationClient produces answers with the instruction-tuned generation
// model. Sampling parameters favour varied, conversational phrasing.
type GenerationClient struct {
	api   *openai.Client
	model string
}

func NewGenerationClient(cfg Config) *GenerationClient {
	return &GenerationClient{api: newAPIClient(cfg), model: cfg.GenerationModel}
}

func (c *GenerationClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyText
	}

	resp, err := c.api.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   500,
		Temperature: 0.85,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}

	return strings.TrimSpace(resp.Choices[0].Text), nil
}

// TranslationClient runs the paired translation models. Direction selects the
// model; translation always degrades to the input on failure at the caller.
type TranslationClient struct {
	api     *openai.Client
	modelEN string
	modelSW string
}

func NewTranslationClient(cfg Config) *TranslationClient {
	return &TranslationClient{
		api:     newAPIClient(cfg),
		modelEN: cfg.TranslationModelEN,
		modelSW: cfg.TranslationModelSW,
	}
}

// TranslateToSwahili translates English text to Swahili.
func (c *TranslationClient) TranslateToSwahili(ctx context.Context, text string) (string, error) {
	return c.translate(ctx, c.modelEN, text)
}

// TranslateToEnglish translates Swahili text to English.
func (c *TranslationClient) TranslateToEnglish(ctx context.Context, text string) (string, error) {
	return c.translate(ctx, c.modelSW, text)
}

func (c *TranslationClient) translate(ctx context.Context, model, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	resp, err := c.api.CreateCompletion(ctx, openai.CompletionRequest{
		Model:     model,
		Prompt:    text,
		MaxTokens: 512,
	})
	if err != nil {
		return "", fmt.Errorf("failed to translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no translation returned")
	}

	return strings.TrimSpace(resp.Choices[0].Text), nil
}
