package metadata

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

var keyPrefix = domain.KeyPrefix + "meta:"

// store is the consumer interface for metadata rows (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo stores one hash per source file.
type Repo struct {
	store store
}

// New creates a metadata repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert replaces the row for m.SourcePath: delete, then insert.
func (r *Repo) Upsert(ctx context.Context, m record.Metadata) error {
	if m.SourcePath == "" {
		return fmt.Errorf("source path is required: %w", domain.ErrInvalidInput)
	}
	fields, err := buildHashFields(m)
	if err != nil {
		return err
	}

	key := metaKey(m.SourcePath)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a row exists for source.
func (r *Repo) Exists(ctx context.Context, source string) (bool, error) {
	key := metaKey(source)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return ok, nil
}

// FetchByPaths returns rows keyed by source path. Unknown paths are absent from the map.
func (r *Repo) FetchByPaths(ctx context.Context, paths []string) (map[string]record.Metadata, error) {
	if len(paths) == 0 {
		return map[string]record.Metadata{}, nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = metaKey(p)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	out := make(map[string]record.Metadata, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		m, err := parseHashFields(row)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", keys[i], err)
		}
		out[m.SourcePath] = m
	}
	return out, nil
}

// Delete removes the row for source. A missing row is not an error.
func (r *Repo) Delete(ctx context.Context, source string) error {
	key := metaKey(source)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func metaKey(source string) string {
	return keyPrefix + record.SourceID(source)
}
