// Package memory is an in-process db.Store for tests, demos and offline use.
// Vector search is brute force over the hashes covered by an index prefix.
package memory

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"math"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/semdesk/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps hashes, plain values and index definitions in maps.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	values  map[string][]byte
	indexes map[string]db.IndexDefinition
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		values:  make(map[string][]byte),
		indexes: make(map[string]db.IndexDefinition),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// --- hashes ---

// HSet merges fields into the hash at key.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hset(key, fields)
	return nil
}

// HSetMulti merges fields for every item.
func (s *Store) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.hset(item.Key, item.Fields)
	}
	return nil
}

func (s *Store) hset(key string, fields map[string]string) {
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	maps.Copy(h, fields)
}

// HGetAllMulti returns one copy per key, in key order. A missing key yields an empty map.
func (s *Store) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		out[i] = s.hgetAll(key)
	}
	return out, nil
}

func (s *Store) hgetAll(key string) map[string]string {
	h := s.hashes[key]
	if h == nil {
		return map[string]string{}
	}
	return maps.Clone(h)
}

// Del removes hashes and plain values.
func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.hashes, key)
		delete(s.values, key)
	}
	return nil
}

// Exists reports whether key holds a hash or a value.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, isHash := s.hashes[key]
	_, isValue := s.values[key]
	return isHash || isValue, nil
}

// Scan returns keys matching a glob pattern, sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.hashes {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	for key := range s.values {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// --- values ---

// Get returns a copy of the value at key or db.ErrKeyNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

// Set stores a copy of value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = slices.Clone(value)
	return nil
}

// --- indexes ---

// CreateIndex registers a definition. Hashes already present become searchable.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if def == nil {
		return errors.New("index definition is required")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	s.indexes[def.Name] = *def
	return nil
}

// IndexExists reports whether name is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// --- search ---

// SearchKNN scores every hash under the index prefix that carries a vector of
// the indexed dimension and satisfies the scope, then returns the K closest.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	vf := def.Vector
	if q.VectorAttr != "" && q.VectorAttr != vf.Name() {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("unknown vector attribute %q", q.VectorAttr)}
	}
	if len(q.Vector) != vf.Dim {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf(
			"query vector dimension %d does not match index dimension %d", len(q.Vector), vf.Dim)}
	}

	var entries []db.SearchEntry
	for key, h := range s.hashes {
		if !strings.HasPrefix(key, def.Prefix) || !inScope(h, q.Scope) {
			continue
		}
		vec := bytesToVector(h[vf.Field])
		if len(vec) != vf.Dim {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:      key,
			Distance: distance(vf.Distance, q.Vector, vec),
			Fields:   project(h, q.ReturnFields, vf.Field),
		})
	}

	slices.SortFunc(entries, func(a, b db.SearchEntry) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	total := len(entries)
	if len(entries) > q.K {
		entries = entries[:q.K]
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func inScope(h, scope map[string]string) bool {
	for k, v := range scope {
		if h[k] != v {
			return false
		}
	}
	return true
}

func project(h map[string]string, fields []string, vectorName string) map[string]string {
	if len(fields) == 0 {
		out := maps.Clone(h)
		delete(out, vectorName)
		return out
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := h[f]; ok {
			out[f] = v
		}
	}
	return out
}

// distance mirrors the server metrics: COSINE is 1-cos, IP is 1-dot, L2 is squared euclidean.
func distance(metric db.DistanceMetric, a, b []float32) float64 {
	switch metric {
	case db.DistanceL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return sum
	case db.DistanceIP:
		return 1 - dot(a, b)
	default:
		na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot(a, b)/(na*nb)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func bytesToVector(s string) []float32 {
	if len(s) == 0 || len(s)%4 != 0 {
		return nil
	}
	b := []byte(s)
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
