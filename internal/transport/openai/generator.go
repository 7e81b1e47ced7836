package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/metrics"
)

// Generator produces text through the chat completions endpoint of an OpenAI-compatible API.
type Generator struct {
	client      *openai.Client
	temperature float32
	logger      *zap.Logger
}

// GeneratorConfig holds the text generation settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible text generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client:      newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Generate implements domain.Generator with a single user message.
func (g *Generator) Generate(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt must contain text: %w", domain.ErrInvalidInput)
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	metrics.GeneratorRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GeneratorRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", parseAPIError("generation", err, domain.ErrGeneratorError)
	}
	if len(resp.Choices) == 0 {
		metrics.GeneratorRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGeneratorError)
	}

	metrics.GeneratorRequestsTotal.WithLabelValues(model, "success").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
