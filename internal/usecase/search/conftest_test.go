package search

import (
	"context"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

// --- Mocks ---

type mockMetadata struct {
	rows  map[string]record.Metadata
	err   error
	paths []string
}

func (m *mockMetadata) FetchByPaths(_ context.Context, paths []string) (map[string]record.Metadata, error) {
	m.paths = paths
	return m.rows, m.err
}

type mockNeighbors struct {
	neighbors []record.Neighbor
	err       error
	variant   domain.Variant
	limit     int
	calls     int
}

func (m *mockNeighbors) Search(_ context.Context, _ []float32, v domain.Variant, limit int) ([]record.Neighbor, error) {
	m.calls++
	m.variant = v
	m.limit = limit
	return m.neighbors, m.err
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

type mockAnswerer struct {
	text     string
	err      error
	contexts []Context
	calls    int
}

func (m *mockAnswerer) Answer(_ context.Context, _ string, contexts []Context) (string, error) {
	m.calls++
	m.contexts = contexts
	return m.text, m.err
}

type mockGenerator struct {
	resp   string
	err    error
	model  string
	prompt string
	calls  int
}

func (m *mockGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	m.calls++
	m.model = model
	m.prompt = prompt
	return m.resp, m.err
}

func tagNeighbor(source, label string, distance float64) record.Neighbor {
	return record.Neighbor{
		SourcePath: source, MarkdownPath: source + ".md",
		Variant: domain.VariantTags, Label: label, Distance: distance,
	}
}

func docNeighbor(source string, distance float64) record.Neighbor {
	return record.Neighbor{
		SourcePath: source, MarkdownPath: source + ".md",
		Variant: domain.VariantDocument, Distance: distance,
	}
}
