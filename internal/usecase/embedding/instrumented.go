package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

// InstrumentedEmbedder logs every embedding call. Request counters and
// latency histograms live in transport/openai, next to the HTTP call.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. provider and model are attached to every log line.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:  inner,
		logger: logger.Named("embedding").With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed delegates to the wrapped embedder.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	took := zap.Duration("duration", time.Since(start))

	if err != nil {
		p.logger.Check(failureLevel(err), "Embedding request failed").Write(took, zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	p.logger.Debug("Embedding request completed", took,
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// HealthCheck reports the wrapped embedder's health, or nil if it has no probe.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	return healthOf(ctx, p.inner)
}

// InstrumentedGenerator logs every generation call.
type InstrumentedGenerator struct {
	inner  domain.Generator
	logger *zap.Logger
}

// NewInstrumentedGenerator wraps inner.
func NewInstrumentedGenerator(inner domain.Generator, logger *zap.Logger) *InstrumentedGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedGenerator{inner: inner, logger: logger.Named("generation")}
}

// Generate delegates to the wrapped generator.
func (g *InstrumentedGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	start := time.Now()
	text, err := g.inner.Generate(ctx, model, prompt)
	fields := []zap.Field{zap.String("model", model), zap.Duration("duration", time.Since(start))}

	if err != nil {
		g.logger.Check(failureLevel(err), "Generation request failed").Write(append(fields, zap.Error(err))...)
		return "", fmt.Errorf("generate: %w", err)
	}
	g.logger.Debug("Generation request completed",
		append(fields, zap.Int("prompt_chars", len(prompt)), zap.Int("response_chars", len(text)))...)
	return text, nil
}

// HealthCheck reports the wrapped generator's health, or nil if it has no probe.
func (g *InstrumentedGenerator) HealthCheck(ctx context.Context) error {
	return healthOf(ctx, g.inner)
}

func healthOf(ctx context.Context, v any) error {
	if hc, ok := v.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// failureLevel keeps caller cancellations out of the error log.
func failureLevel(err error) zapcore.Level {
	if errors.Is(err, context.Canceled) {
		return zapcore.DebugLevel
	}
	return zapcore.ErrorLevel
}
