package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/semdesk/internal/db"
	"github.com/kailas-cloud/semdesk/internal/db/memory"
	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/repository/embedding"
	"github.com/kailas-cloud/semdesk/internal/repository/metadata"
	"github.com/kailas-cloud/semdesk/internal/usecase/summary"
)

// mockStage converts by reading the file and prefixing a heading.
type mockStage struct {
	convertFn func(ctx context.Context, path string) (string, string, error)
	calls     int
}

func (m *mockStage) Convert(ctx context.Context, path string) (string, string, error) {
	m.calls++
	if m.convertFn != nil {
		return m.convertFn(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return "# " + filepath.Base(path) + "\n\n" + string(data), "markitdown", nil
}

type mockSummarizer struct {
	summarizeFn func(ctx context.Context, text string) (summary.Summary, error)
	calls       int
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string) (summary.Summary, error) {
	m.calls++
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, text)
	}
	return summary.Summary{Description: "A document.", Tags: []string{"Alpha", "beta"}}, nil
}

// mockEmbedder maps text to a small deterministic vector.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)%5 + 1), 1, 0.5}}, nil
}

// countingStore counts mutating calls on top of the memory store.
type countingStore struct {
	*memory.Store
	writes int
}

func (s *countingStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	s.writes++
	return s.Store.HSet(ctx, key, fields)
}

func (s *countingStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	s.writes++
	return s.Store.HSetMulti(ctx, items)
}

func (s *countingStore) Del(ctx context.Context, keys ...string) error {
	s.writes++
	return s.Store.Del(ctx, keys...)
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.writes++
	return s.Store.Set(ctx, key, value)
}

type fixture struct {
	store      *countingStore
	metadata   *metadata.Repo
	embeddings *embedding.Repo
	stage      *mockStage
	summarizer *mockSummarizer
	embedder   *mockEmbedder
	folder     string
	output     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	store := &countingStore{Store: memory.NewStore()}
	return &fixture{
		store:      store,
		metadata:   metadata.New(store),
		embeddings: embedding.New(store, embedding.Options{}),
		stage:      &mockStage{},
		summarizer: &mockSummarizer{},
		embedder:   &mockEmbedder{},
		folder:     filepath.Join(root, "docs"),
		output:     filepath.Join(root, "out"),
	}
}

func (f *fixture) pipeline(opts Options) *Pipeline {
	if opts.OutputRoot == "" {
		opts.OutputRoot = f.output
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	}
	return NewPipeline(Deps{
		Stage:      f.stage,
		Summarizer: f.summarizer,
		Embedder:   f.embedder,
		Metadata:   f.metadata,
		Embeddings: f.embeddings,
	}, opts)
}

// markdownPath is where the pipeline writes markdown for rel.
func (f *fixture) markdownPath(rel string) string {
	return filepath.Join(f.output, "docs", rel) + ".md"
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
