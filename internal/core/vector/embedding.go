package vector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/errs"
)

// ErrEmbeddingUnavailable is returned once every retry against the embedding API failed.
var ErrEmbeddingUnavailable = fmt.Errorf("embedding service: %w", errs.ErrExternalServiceUnavailable)

// EmbeddingProvider defines the interface for text embedding generation
type EmbeddingProvider interface {
	// GenerateEmbedding generates an embedding vector for a single text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateBatchEmbeddings generates embeddings for multiple texts, in input order
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// GetDimensions returns the dimension size of the embeddings
	GetDimensions() int

	// GetProviderName returns the provider name
	GetProviderName() string
}

// EmbeddingConfig configures the OpenAI-compatible embedding client.
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIEmbeddingProvider implements EmbeddingProvider using OpenAI
type OpenAIEmbeddingProvider struct {
	client     *openai.Client
	model      string
	dims       int
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
}

// NewOpenAIEmbeddingProvider creates a new OpenAI embedding provider
// Default model: text-embedding-3-small (1536 dimensions)
func NewOpenAIEmbeddingProvider(cfg EmbeddingConfig) (*OpenAIEmbeddingProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultDimensions(cfg.Model)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbeddingProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dims:       cfg.Dimensions,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryBase:  200 * time.Millisecond,
	}, nil
}

func defaultDimensions(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		// text-embedding-3-small and text-embedding-ada-002
		return 1536
	}
}

// GenerateEmbedding generates an embedding for a single text
func (p *OpenAIEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	out, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// GenerateBatchEmbeddings generates embeddings for multiple texts
func (p *OpenAIEmbeddingProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}
	return p.embed(ctx, texts)
}

func (p *OpenAIEmbeddingProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	}
	if p.model != string(openai.AdaEmbeddingV2) {
		req.Dimensions = p.dims
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, ctx.Err())
			case <-time.After(p.retryDelay(attempt - 1)):
			}
		}

		out, err := p.try(ctx, req, len(texts))
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("⚠️ Embedding request failed, retrying")
	}

	return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, lastErr)
}

func (p *OpenAIEmbeddingProvider) try(ctx context.Context, req openai.EmbeddingRequest, want int) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(resp.Data))
	}

	out := make([][]float32, want)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != p.dims {
			return nil, fmt.Errorf("embedding dimension %d, expected %d", len(d.Embedding), p.dims)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// retryDelay backs off exponentially from retryBase, capped at 5s.
func (p *OpenAIEmbeddingProvider) retryDelay(attempt int) time.Duration {
	delay := p.retryBase << attempt
	if delay > 5*time.Second || delay <= 0 {
		return 5 * time.Second
	}
	return delay
}

// retryable reports whether err looks transient: transport failures, 429 and 5xx.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

// GetDimensions returns the dimension size
func (p *OpenAIEmbeddingProvider) GetDimensions() int {
	return p.dims
}

// GetProviderName returns the provider name
func (p *OpenAIEmbeddingProvider) GetProviderName() string {
	return fmt.Sprintf("openai_%s", p.model)
}
