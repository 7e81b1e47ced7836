package history

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/semdesk/internal/db"
	"github.com/kailas-cloud/semdesk/internal/db/memory"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func TestLoad_NothingPersisted(t *testing.T) {
	repo := New(&mockKVStore{})
	h, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h == nil || len(h) != 0 {
		t.Errorf("expected empty map, got %v", h)
	}
}

func TestLoad_StoreError(t *testing.T) {
	repo := New(&mockKVStore{getFn: func(context.Context, string) ([]byte, error) {
		return nil, errors.New("conn refused")
	}})
	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_Corrupt(t *testing.T) {
	repo := New(&mockKVStore{getFn: func(context.Context, string) ([]byte, error) {
		return []byte("{not json"), nil
	}})
	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSave_Key(t *testing.T) {
	var gotKey string
	repo := New(&mockKVStore{setFn: func(_ context.Context, key string, _ []byte) error {
		gotKey = key
		return nil
	}})
	if err := repo.Save(context.Background(), map[string]map[string]float64{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "semdesk:routing:history" {
		t.Errorf("key = %q", gotKey)
	}
}

func TestRoundTrip_MemoryStore(t *testing.T) {
	repo := New(memory.NewStore())
	ctx := context.Background()
	want := map[string]map[string]float64{
		".pdf": {"docling": 0.85, "markitdown": 0.35},
		".txt": {"markitdown": 0.65},
	}

	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
