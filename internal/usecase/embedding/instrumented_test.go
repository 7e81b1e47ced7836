package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

type mockEmbedder struct {
	result    domain.EmbeddingResult
	err       error
	healthErr error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error {
	return m.healthErr
}

type plainEmbedder struct{}

func (plainEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, nil
}

type mockGenerator struct {
	resp      string
	err       error
	healthErr error
	model     string
}

func (m *mockGenerator) Generate(_ context.Context, model, _ string) (string, error) {
	m.model = model
	return m.resp, m.err
}

func (m *mockGenerator) HealthCheck(_ context.Context) error {
	return m.healthErr
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
}

func TestInstrumentedEmbedder_WithUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 100,
		TotalTokens:  100,
	}}
	p := NewInstrumentedEmbedder(inner, "test-usage", "test-model-u", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTokens != 100 {
		t.Fatalf("expected 100 total tokens, got %d", result.TotalTokens)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("api: %w", domain.ErrEmbeddingProviderError)}
	p := NewInstrumentedEmbedder(inner, "test-err", "test-model-e", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	down := errors.New("down")
	p := NewInstrumentedEmbedder(&mockEmbedder{healthErr: down}, "test", "m", zap.NewNop())
	if err := p.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected delegated error, got %v", err)
	}

	plain := NewInstrumentedEmbedder(plainEmbedder{}, "test", "m", zap.NewNop())
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumentedEmbedder_LogLevels(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level zapcore.Level
	}{
		{"provider failure", domain.ErrEmbeddingProviderError, zapcore.ErrorLevel},
		{"caller canceled", fmt.Errorf("post: %w", context.Canceled), zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			p := NewInstrumentedEmbedder(&mockEmbedder{err: tt.err}, "ollama", "gemma", zap.New(core))

			_, _ = p.Embed(context.Background(), "hello")

			entries := logs.FilterMessage("Embedding request failed").All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 failure entry, got %d", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Errorf("level = %s, want %s", entries[0].Level, tt.level)
			}
			if entries[0].ContextMap()["provider"] != "ollama" {
				t.Errorf("provider field = %v", entries[0].ContextMap()["provider"])
			}
		})
	}
}

// --- Generator ---

func TestInstrumentedGenerator_Success(t *testing.T) {
	inner := &mockGenerator{resp: "hello"}
	g := NewInstrumentedGenerator(inner, zap.NewNop())

	text, err := g.Generate(context.Background(), "gemma", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" || inner.model != "gemma" {
		t.Errorf("got %q for model %q", text, inner.model)
	}
}

func TestInstrumentedGenerator_Error(t *testing.T) {
	g := NewInstrumentedGenerator(&mockGenerator{err: domain.ErrGeneratorError}, zap.NewNop())

	_, err := g.Generate(context.Background(), "gemma", "prompt")
	if !errors.Is(err, domain.ErrGeneratorError) {
		t.Fatalf("expected ErrGeneratorError, got %v", err)
	}
}

func TestInstrumentedGenerator_HealthCheck(t *testing.T) {
	down := errors.New("down")
	g := NewInstrumentedGenerator(&mockGenerator{healthErr: down}, zap.NewNop())
	if err := g.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected delegated error, got %v", err)
	}
}
