package search

import (
	"context"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

// MetadataReader resolves source paths to their stored metadata.
type MetadataReader interface {
	FetchByPaths(ctx context.Context, paths []string) (map[string]record.Metadata, error)
}

// NeighborSearcher runs nearest-neighbor queries over one embedding variant.
type NeighborSearcher interface {
	Search(ctx context.Context, vector []float32, v domain.Variant, limit int) ([]record.Neighbor, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Answerer writes an answer grounded in the supplied contexts.
type Answerer interface {
	Answer(ctx context.Context, question string, contexts []Context) (string, error)
}

// Context is one document snippet handed to an Answerer.
type Context struct {
	SourcePath string
	Content    string
}
