package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/stride/internal/cache"
	"github.com/desertthunder/stride/internal/models"
	"github.com/desertthunder/stride/internal/shared"
)

// Option configures a cache-backed repository.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets the logger that reports undecodable cache entries. Defaults to [log.Default].
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// jsonRepository stores entities of one kind as JSON in a single namespace.
//
// Entries that no longer decode are logged and treated as misses, so the next write replaces them.
type jsonRepository[T models.Entity] struct {
	store  cache.Store
	ns     cache.Namespace
	logger *log.Logger
}

func newJSONRepository[T models.Entity](store cache.Store, ns cache.Namespace, opts []Option) jsonRepository[T] {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return jsonRepository[T]{store: store, ns: ns, logger: o.logger}
}

func (r jsonRepository[T]) discard(key string, err error) {
	r.logger.Warn("discarding undecodable cache entry", "namespace", r.ns, "key", key, "error", err)
}

func (r jsonRepository[T]) get(ctx context.Context, key string) (T, bool, error) {
	var entity T

	payload, ok, err := r.store.Get(ctx, r.ns, key)
	if err != nil || !ok {
		return entity, false, err
	}

	if err := json.Unmarshal(payload, &entity); err != nil {
		r.discard(key, err)
		var zero T
		return zero, false, nil
	}
	return entity, true, nil
}

func (r jsonRepository[T]) getMany(ctx context.Context, keys []string) (map[string]T, error) {
	payloads, err := r.store.GetMany(ctx, r.ns, keys)
	if err != nil {
		return nil, err
	}

	entities := make(map[string]T, len(payloads))
	for key, payload := range payloads {
		var entity T
		if err := json.Unmarshal(payload, &entity); err != nil {
			r.discard(key, err)
			continue
		}
		entities[key] = entity
	}
	return entities, nil
}

func (r jsonRepository[T]) put(ctx context.Context, entity T, policy cache.Policy) error {
	if err := entity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to encode %s entry: %w", r.ns, err)
	}

	return r.store.Put(ctx, r.ns, entity.Key(), payload, policy)
}
