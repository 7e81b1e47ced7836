package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/semdesk/internal/db"
	"github.com/kailas-cloud/semdesk/internal/domain"
)

var historyKey = domain.KeyPrefix + "routing:history"

// store is the consumer interface for routing history (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists the router's extension → converter → score map as one JSON value.
type Repo struct {
	store store
}

// New creates a routing history repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Load returns the persisted map. Nothing persisted yet yields an empty map.
func (r *Repo) Load(ctx context.Context) (map[string]map[string]float64, error) {
	data, err := r.store.Get(ctx, historyKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return map[string]map[string]float64{}, nil
		}
		return nil, fmt.Errorf("get %s: %w", historyKey, err)
	}

	h := map[string]map[string]float64{}
	if len(data) == 0 {
		return h, nil
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("unmarshal routing history: %w", err)
	}
	return h, nil
}

// Save overwrites the persisted map.
func (r *Repo) Save(ctx context.Context, h map[string]map[string]float64) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal routing history: %w", err)
	}
	if err := r.store.Set(ctx, historyKey, data); err != nil {
		return fmt.Errorf("set %s: %w", historyKey, err)
	}
	return nil
}
