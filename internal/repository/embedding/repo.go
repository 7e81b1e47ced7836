package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/semdesk/internal/db"
	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

var (
	keyPrefix = domain.KeyPrefix + "emb:"
	indexName = domain.KeyPrefix + "emb:idx"
)

// store is the consumer interface for embedding rows (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Options tune the vector index created on first write.
type Options struct {
	Algorithm      db.VectorAlgorithm
	M              int
	EFConstruction int
}

// Repo stores one document row and any number of tag rows per source
// under a single cosine vector index.
type Repo struct {
	store store
	opts  Options
	ready atomic.Bool
}

// New creates an embedding repository.
func New(s store, opts Options) *Repo {
	return &Repo{store: s, opts: opts}
}

// Replace drops the document row and every tag row of source, then inserts rows.
func (r *Repo) Replace(ctx context.Context, source string, rows []record.Embedding) error {
	if source == "" {
		return fmt.Errorf("source path is required: %w", domain.ErrInvalidInput)
	}
	if err := r.Delete(ctx, source); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	dim := len(rows[0].Vector)
	items := make([]db.HashSetItem, 0, len(rows))
	seenTags := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.SourcePath != source {
			return fmt.Errorf("row for %s in replace of %s: %w", row.SourcePath, source, domain.ErrInvalidInput)
		}
		if len(row.Vector) == 0 || len(row.Vector) != dim {
			return fmt.Errorf("vector dimension %d, want %d: %w", len(row.Vector), dim, domain.ErrInvalidInput)
		}
		key, err := rowKey(row)
		if err != nil {
			return err
		}
		if row.Variant == domain.VariantTags {
			if _, dup := seenTags[row.Label]; dup {
				continue
			}
			seenTags[row.Label] = struct{}{}
		}
		items = append(items, db.HashSetItem{Key: key, Fields: buildHashFields(row)})
	}

	if err := r.ensureIndex(ctx, dim); err != nil {
		return err
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset embeddings for %s: %w", source, err)
	}
	return nil
}

// HasVariant reports whether source has at least one row of variant v.
func (r *Repo) HasVariant(ctx context.Context, source string, v domain.Variant) (bool, error) {
	switch v {
	case domain.VariantDocument:
		key := docKey(source)
		ok, err := r.store.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("exists %s: %w", key, err)
		}
		return ok, nil
	case domain.VariantTags:
		keys, err := r.store.Scan(ctx, tagPattern(source))
		if err != nil {
			return false, fmt.Errorf("scan tags of %s: %w", source, err)
		}
		return len(keys) > 0, nil
	default:
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
}

// Search returns up to limit rows of variant v, closest first.
// An index that was never created yields no rows.
func (r *Repo) Search(ctx context.Context, vector []float32, v domain.Variant, limit int) ([]record.Neighbor, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}

	if !r.ready.Load() {
		exists, err := r.store.IndexExists(ctx, indexName)
		if err != nil {
			return nil, fmt.Errorf("check index: %w", err)
		}
		if !exists {
			return nil, nil
		}
		r.ready.Store(true)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		VectorAttr:   vectorAlias,
		Vector:       vector,
		K:            limit,
		Scope:        map[string]string{fieldVariant: string(v)},
		ReturnFields: []string{fieldSourcePath, fieldMarkdownPath, fieldVariant, fieldLabel},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	out := make([]record.Neighbor, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, record.Neighbor{
			SourcePath:   e.Fields[fieldSourcePath],
			MarkdownPath: e.Fields[fieldMarkdownPath],
			Variant:      domain.Variant(e.Fields[fieldVariant]),
			Label:        e.Fields[fieldLabel],
			Distance:     e.Distance,
		})
	}
	return out, nil
}

// Delete removes every row of source.
func (r *Repo) Delete(ctx context.Context, source string) error {
	tagKeys, err := r.store.Scan(ctx, tagPattern(source))
	if err != nil {
		return fmt.Errorf("scan tags of %s: %w", source, err)
	}
	keys := append([]string{docKey(source)}, tagKeys...)
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("del embeddings of %s: %w", source, err)
	}
	return nil
}

func (r *Repo) ensureIndex(ctx context.Context, dim int) error {
	if r.ready.Load() {
		return nil
	}
	def := &db.IndexDefinition{
		Name:   indexName,
		Prefix: keyPrefix,
		Tags:   []string{fieldVariant},
		Vector: db.VectorField{
			Field:          fieldVector,
			Alias:          vectorAlias,
			Dim:            dim,
			Algorithm:      r.opts.Algorithm,
			Distance:       db.DistanceCosine,
			M:              r.opts.M,
			EFConstruction: r.opts.EFConstruction,
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	r.ready.Store(true)
	return nil
}

func rowKey(row record.Embedding) (string, error) {
	switch row.Variant {
	case domain.VariantDocument:
		return docKey(row.SourcePath), nil
	case domain.VariantTags:
		if strings.TrimSpace(row.Label) == "" {
			return "", fmt.Errorf("tag row without label: %w", domain.ErrInvalidInput)
		}
		return tagPrefix(row.SourcePath) + record.SourceID(row.Label), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownVariant, row.Variant)
	}
}

func docKey(source string) string {
	return keyPrefix + "doc:" + record.SourceID(source)
}

func tagPrefix(source string) string {
	return keyPrefix + "tag:" + record.SourceID(source) + ":"
}

func tagPattern(source string) string {
	return tagPrefix(source) + "*"
}
