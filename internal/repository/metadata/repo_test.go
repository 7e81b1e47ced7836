package metadata

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/semdesk/internal/db/memory"
	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

// --- Upsert ---

func TestUpsert_DeletesThenInserts(t *testing.T) {
	repo, ms := newTestRepo(t)
	m := testMetadata(t)
	wantKey := "semdesk:meta:" + record.SourceID(m.SourcePath)

	var calls []string
	ms.delFn = func(_ context.Context, keys ...string) error {
		if len(keys) != 1 || keys[0] != wantKey {
			t.Errorf("unexpected del keys: %v", keys)
		}
		calls = append(calls, "del")
		return nil
	}
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		if key != wantKey {
			t.Errorf("unexpected key: %s", key)
		}
		if fields["tags"] != `["meetings","planning"]` {
			t.Errorf("tags field = %q", fields["tags"])
		}
		if fields["indexed_at"] != "2026-02-03T04:05:06Z" {
			t.Errorf("indexed_at field = %q", fields["indexed_at"])
		}
		calls = append(calls, "hset")
		return nil
	}

	if err := repo.Upsert(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(calls, []string{"del", "hset"}) {
		t.Errorf("call order = %v", calls)
	}
}

func TestUpsert_DelError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.delFn = func(context.Context, ...string) error { return errors.New("conn refused") }
	ms.hsetFn = func(context.Context, string, map[string]string) error {
		t.Fatal("HSET must not run after a failed delete")
		return nil
	}

	if err := repo.Upsert(context.Background(), testMetadata(t)); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_RequiresSource(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.Upsert(context.Background(), record.Metadata{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

// --- FetchByPaths ---

func TestFetchByPaths_SkipsMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	fields, err := buildHashFields(testMetadata(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if len(keys) != 2 {
			t.Fatalf("expected 2 keys, got %d", len(keys))
		}
		return []map[string]string{fields, {}}, nil
	}

	got, err := repo.FetchByPaths(context.Background(), []string{"/docs/notes.txt", "/docs/gone.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if !reflect.DeepEqual(got["/docs/notes.txt"], testMetadata(t)) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got["/docs/notes.txt"], testMetadata(t))
	}
}

func TestFetchByPaths_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(context.Context, []string) ([]map[string]string, error) {
		t.Fatal("store must not be called")
		return nil, nil
	}
	got, err := repo.FetchByPaths(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestFetchByPaths_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(context.Context, []string) ([]map[string]string, error) {
		return nil, errors.New("timeout")
	}
	if _, err := repo.FetchByPaths(context.Background(), []string{"/a"}); err == nil {
		t.Fatal("expected error")
	}
}

// --- against the in-memory driver ---

func TestRepo_MemoryStore(t *testing.T) {
	repo := New(memory.NewStore())
	ctx := context.Background()
	m := testMetadata(t)

	if ok, _ := repo.Exists(ctx, m.SourcePath); ok {
		t.Fatal("expected no row before upsert")
	}
	if err := repo.Upsert(ctx, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replaced := m.WithSummary("Updated", nil)
	if err := repo.Upsert(ctx, replaced); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := repo.FetchByPaths(ctx, []string{m.SourcePath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[m.SourcePath].Description != "Updated" || len(got[m.SourcePath].Tags) != 0 {
		t.Errorf("second upsert should replace the row, got %+v", got[m.SourcePath])
	}

	if err := repo.Delete(ctx, m.SourcePath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := repo.Exists(ctx, m.SourcePath); ok {
		t.Error("expected row to be deleted")
	}
}
