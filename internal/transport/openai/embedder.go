package openai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/metrics"
)

const (
	// DefaultEmbeddingModel is the embedding model pulled into a stock Ollama.
	DefaultEmbeddingModel = "embeddinggemma:latest"
	// DefaultMaxChars caps the runes sent per embedding request.
	DefaultMaxChars = 4000
)

// Embedder turns text into vectors through the /embeddings endpoint of an
// OpenAI-compatible server: Ollama by default, OpenAI or any proxy otherwise.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	maxChars   int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings. Zero values take defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // requested output size; 0 lets the model decide
	MaxChars   int
	Timeout    time.Duration
	User       string
	Provider   string // metrics label
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	e := &Embedder{
		client:     newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxChars:   cfg.MaxChars,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
	if e.model == "" {
		e.model = DefaultEmbeddingModel
	}
	if e.maxChars <= 0 {
		e.maxChars = DefaultMaxChars
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("embedder")
	return e
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Embed implements domain.Embedder. Surrounding whitespace is dropped and the
// rest is cut to MaxChars runes.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	text = e.clip(text)
	if text == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("cannot embed empty text: %w", domain.ErrInvalidInput)
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		e.fail("api_error")
		e.logger.Debug("Embedding request failed", zap.String("model", e.model), zap.Error(err))
		return domain.EmbeddingResult{}, parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	case len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0:
		e.fail("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	e.succeed(elapsed, resp.Usage)
	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) clip(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= e.maxChars {
		return text
	}
	return string([]rune(text)[:e.maxChars])
}

func (e *Embedder) fail(reason string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, reason).Inc()
}

func (e *Embedder) succeed(elapsed time.Duration, usage openai.Usage) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(elapsed.Seconds())
	if usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(usage.TotalTokens))
	}
}
