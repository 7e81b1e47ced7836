package indexing

import (
	"context"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
	"github.com/kailas-cloud/semdesk/internal/usecase/summary"
)

// Converter turns a source file into markdown and names the converter used.
type Converter interface {
	Convert(ctx context.Context, path string) (text, converter string, err error)
}

// Summarizer produces a description and tags for markdown.
type Summarizer interface {
	Summarize(ctx context.Context, markdown string) (summary.Summary, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// MetadataStore persists one metadata row per source.
type MetadataStore interface {
	Upsert(ctx context.Context, m record.Metadata) error
	Exists(ctx context.Context, source string) (bool, error)
	Delete(ctx context.Context, source string) error
}

// EmbeddingStore persists the embedding rows of a source.
type EmbeddingStore interface {
	Replace(ctx context.Context, source string, rows []record.Embedding) error
	HasVariant(ctx context.Context, source string, v domain.Variant) (bool, error)
	Delete(ctx context.Context, source string) error
}
