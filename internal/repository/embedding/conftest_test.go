package embedding

import (
	"context"
	"testing"

	"github.com/kailas-cloud/semdesk/internal/db"
	"github.com/kailas-cloud/semdesk/internal/db/memory"
)

// mockStore wraps the in-memory driver and lets tests override single calls.
type mockStore struct {
	*memory.Store
	scanFn        func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	searchFn      func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	createCalls   int
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return m.Store.Scan(ctx, pattern)
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	m.createCalls++
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return m.Store.CreateIndex(ctx, def)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return m.Store.SearchKNN(ctx, q)
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{Store: memory.NewStore()}
	return New(ms, Options{Algorithm: db.VectorFlat}), ms
}
