package redis

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/semdesk/internal/db"
)

func embeddingIndex() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:   "semdesk:emb:idx",
		Prefix: "semdesk:emb:",
		Tags:   []string{"variant"},
		Vector: db.VectorField{Field: "__vector", Alias: "vector", Dim: 3, M: 16},
	}
}

func TestCreateIndex(t *testing.T) {
	tests := []struct {
		name  string
		reply rueidis.RedisResult
		check func(t *testing.T, err error)
	}{
		{
			name:  "created",
			reply: mock.Result(mock.RedisString("OK")),
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name:  "already exists",
			reply: mock.Result(mock.RedisError("Index already exists")),
			check: func(t *testing.T, err error) {
				if !errors.Is(err, db.ErrIndexExists) {
					t.Errorf("expected ErrIndexExists, got %v", err)
				}
			},
		},
		{
			name:  "transport failure",
			reply: mock.ErrorResult(context.DeadlineExceeded),
			check: func(t *testing.T, err error) { wantOp(t, err, db.OpCreateIndex) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), cmdIs("FT.CREATE", "semdesk:emb:idx")).Return(tt.reply)
			tt.check(t, s.CreateIndex(context.Background(), embeddingIndex()))
		})
	}
}

func TestCreateIndex_InvalidDefinitionSkipsServer(t *testing.T) {
	s := &Store{}
	if err := s.CreateIndex(context.Background(), nil); err == nil {
		t.Error("expected error for nil definition")
	}
	if err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: "idx"}); err == nil {
		t.Error("expected error for missing vector field")
	}
}

func TestIndexExists(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
			Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("idx")))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
			Return(mock.Result(mock.RedisError("Unknown index name"))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
			Return(mock.ErrorResult(context.DeadlineExceeded)),
	)

	ctx := context.Background()
	if ok, err := s.IndexExists(ctx, "idx"); err != nil || !ok {
		t.Fatalf("present = %v, %v; want true", ok, err)
	}
	if ok, err := s.IndexExists(ctx, "idx"); err != nil || ok {
		t.Fatalf("absent = %v, %v; want false", ok, err)
	}
	_, err := s.IndexExists(ctx, "idx")
	wantOp(t, err, db.OpIndexInfo)
}

func TestCreateArgs(t *testing.T) {
	flat := embeddingIndex()
	flat.Prefix = ""
	flat.Tags = nil
	flat.Vector = db.VectorField{Field: "v", Dim: 4, Algorithm: db.VectorFlat, Distance: db.DistanceL2, M: 16}

	tests := []struct {
		name string
		def  *db.IndexDefinition
		want []string
	}{
		{
			name: "hnsw with alias and prefix",
			def:  embeddingIndex(),
			want: []string{
				"semdesk:emb:idx", "ON", "HASH", "PREFIX", "1", "semdesk:emb:", "SCHEMA",
				"variant", "TAG",
				"__vector", "AS", "vector", "VECTOR", "HNSW", "8",
				"TYPE", "FLOAT32", "DIM", "3", "DISTANCE_METRIC", "COSINE", "M", "16",
			},
		},
		{
			name: "flat drops hnsw tuning",
			def:  flat,
			want: []string{
				"semdesk:emb:idx", "ON", "HASH", "SCHEMA",
				"v", "VECTOR", "FLAT", "6",
				"TYPE", "FLOAT32", "DIM", "4", "DISTANCE_METRIC", "L2",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := createArgs(tt.def)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("args =\n%v\nwant\n%v", got, tt.want)
			}
		})
	}
}
