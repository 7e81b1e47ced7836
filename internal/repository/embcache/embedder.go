// Package embcache memoizes embeddings in the shared key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/db"
	"github.com/kailas-cloud/semdesk/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "embcache:"

	// entryVersion leads every stored entry; bump it when the layout changes.
	entryVersion byte = 1
	headerLen         = 5
)

var errBadEntry = errors.New("malformed cache entry")

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Options configure the cache.
type Options struct {
	// Model scopes keys; vectors of different models never mix.
	Model string
	// Lookups counts lookups by result ("hit", "miss"). Optional.
	Lookups *prometheus.CounterVec
	Logger  *zap.Logger
}

// Embedder wraps another embedder and serves repeated texts from the store.
// Store failures degrade to a pass-through, they never fail an embed.
type Embedder struct {
	next    domain.Embedder
	kv      kv
	model   string
	lookups *prometheus.CounterVec
	log     *zap.Logger
}

// New creates a caching embedder in front of next.
func New(next domain.Embedder, store kv, opts Options) *Embedder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		next:    next,
		kv:      store,
		model:   opts.Model,
		lookups: opts.Lookups,
		log:     log.Named("embcache"),
	}
}

// Embed returns the stored vector for text or computes and stores it.
// Hits report zero tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := e.key(text)

	if vec, ok := e.lookup(ctx, key); ok {
		e.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	e.count("miss")

	res, err := e.next.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if len(res.Embedding) > 0 {
		if err := e.kv.Set(ctx, key, encodeEntry(res.Embedding)); err != nil {
			e.log.Warn("Failed to store embedding", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// HealthCheck reports the wrapped embedder's health.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	hc, ok := e.next.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
}

// key is <prefix><model>:<sha256(text)>.
func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + e.model + ":" + hex.EncodeToString(sum[:])
}

func (e *Embedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	raw, err := e.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		e.log.Warn("Cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeEntry(raw)
	if err != nil {
		e.log.Warn("Ignoring cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (e *Embedder) count(result string) {
	if e.lookups != nil {
		e.lookups.WithLabelValues(result).Inc()
	}
}

// encodeEntry lays out version(1) | dim(uint32 LE) | dim float32 LE.
func encodeEntry(vec []float32) []byte {
	buf := make([]byte, headerLen+4*len(vec))
	buf[0] = entryVersion
	binary.LittleEndian.PutUint32(buf[1:headerLen], uint32(len(vec))) //nolint:gosec // embedding dims are small
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[headerLen+4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeEntry(raw []byte) ([]float32, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes", errBadEntry, len(raw))
	}
	if raw[0] != entryVersion {
		return nil, fmt.Errorf("%w: version %d", errBadEntry, raw[0])
	}
	dim := int(binary.LittleEndian.Uint32(raw[1:headerLen]))
	if dim == 0 || len(raw) != headerLen+4*dim {
		return nil, fmt.Errorf("%w: dim %d in %d bytes", errBadEntry, dim, len(raw))
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[headerLen+4*i:]))
	}
	return vec, nil
}
