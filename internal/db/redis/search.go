package redis

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semdesk/internal/db"
)

const defaultVectorAttr = "vector"

// SearchKNN runs FT.SEARCH with a KNN clause and returns entries by ascending distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := searchArgs(q)
	if err != nil {
		return nil, err
	}
	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseSearchReply(raw, scoreField(q))
}

// scoreField is the distance attribute FT.SEARCH adds for a KNN clause: __<attr>_score.
func scoreField(q *db.KNNQuery) string {
	return "__" + vectorAttr(q) + "_score"
}

func vectorAttr(q *db.KNNQuery) string {
	if q.VectorAttr != "" {
		return q.VectorAttr
	}
	return defaultVectorAttr
}

func searchArgs(q *db.KNNQuery) ([]string, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	filter := "*"
	if scope := buildScope(q.Scope); scope != "" {
		filter = "(" + scope + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", filter, q.K, vectorAttr(q))

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, scoreField(q))
	}
	return append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	), nil
}

// parseSearchReply reads [total, key1, [f, v, ...], key2, [...], ...].
// Entries whose score is missing or unparsable get distance 1.
func parseSearchReply(raw []rueidis.RedisMessage, score string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	rest := raw[1:]
	entries := make([]db.SearchEntry, 0, len(rest)/2)
	for ; len(rest) >= 2; rest = rest[2:] {
		key, err := rest[0].ToString()
		if err != nil {
			continue
		}
		pairs, err := rest[1].ToArray()
		if err != nil {
			continue
		}
		fields := fieldMap(pairs)
		distance := 1.0
		if v, ok := fields[score]; ok {
			if d, err := strconv.ParseFloat(v, 64); err == nil {
				distance = d
			}
			delete(fields, score)
		}
		entries = append(entries, db.SearchEntry{Key: key, Distance: distance, Fields: fields})
	}

	slices.SortStableFunc(entries, func(a, b db.SearchEntry) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for ; len(pairs) >= 2; pairs = pairs[2:] {
		name, nerr := pairs[0].ToString()
		value, verr := pairs[1].ToString()
		if nerr == nil && verr == nil {
			m[name] = value
		}
	}
	return m
}

// buildScope renders tag equality constraints as "@k1:{v1} @k2:{v2}", keys sorted.
func buildScope(scope map[string]string) string {
	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("@" + k + ":{" + escapeTag(scope[k]) + "}")
	}
	return sb.String()
}

// escapeTag backslash-escapes every byte the query parser treats as a separator.
func escapeTag(v string) string {
	var sb strings.Builder
	sb.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if strings.IndexByte(tagSeparators, c) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

const tagSeparators = ",.<>{}[]\"':;!@#$%^&*()-+=~/| \\"

func vectorToBytes(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return string(buf)
}
