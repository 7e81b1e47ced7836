// Package db declares the key-value and vector-search surface semdesk needs
// from its backing store. Drivers live in the redis and memory subpackages;
// repositories depend on the narrow interfaces below, never on Store.
package db

import (
	"context"
	"time"
)

// Store is what a driver implements and what wiring hands to repositories.
//
//nolint:interfacebloat // union of the narrow interfaces below
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher

	// WaitForReady blocks until the store answers or timeout elapses.
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger is the liveness probe used by health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one hash written by HSetMulti.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore holds metadata and embedding rows as field maps.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	// HGetAllMulti returns one map per key, empty for missing keys.
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Scan returns every key matching the glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore holds opaque blobs such as cached embeddings and routing history.
// Get on a missing key returns ErrKeyNotFound.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// IndexManager creates the vector index. CreateIndex on an existing name
// returns ErrIndexExists.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher answers KNN queries against an index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
