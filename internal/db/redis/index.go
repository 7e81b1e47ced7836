package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/semdesk/internal/db"
)

// CreateIndex issues FT.CREATE for def. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}
	if err := s.do(ctx, s.b().Arbitrary("FT.CREATE").Args(args...).Build()).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes name with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case isRedisErr(err, "unknown index name"):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
}

// createArgs renders
//
//	<name> ON HASH [PREFIX 1 <prefix>] SCHEMA <tag> TAG ... <field> [AS <alias>] VECTOR <algo> <n> <attrs...>
func createArgs(def *db.IndexDefinition) ([]string, error) {
	if def == nil {
		return nil, errors.New("index definition is required")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	args := []string{def.Name, "ON", "HASH"}
	if def.Prefix != "" {
		args = append(args, "PREFIX", "1", def.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, tag := range def.Tags {
		args = append(args, tag, "TAG")
	}
	return append(args, vectorArgs(def.Vector)...), nil
}

func vectorArgs(v db.VectorField) []string {
	algo := v.Algorithm
	if algo == "" {
		algo = db.VectorHNSW
	}
	metric := v.Distance
	if metric == "" {
		metric = db.DistanceCosine
	}

	attrs := []string{"TYPE", "FLOAT32", "DIM", strconv.Itoa(v.Dim), "DISTANCE_METRIC", string(metric)}
	if algo == db.VectorHNSW {
		if v.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(v.M))
		}
		if v.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruction))
		}
	}

	head := []string{v.Field}
	if v.Alias != "" {
		head = append(head, "AS", v.Alias)
	}
	head = append(head, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	return append(head, attrs...)
}
