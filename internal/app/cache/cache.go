// Package cache provides the read-through cache in front of dashboard
// queries. Values are JSON-encoded so the in-memory and Redis backends are
// interchangeable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alpex-ai/housing-intelligence/internal/app/metrics"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate drops every key that starts with prefix.
	Invalidate(ctx context.Context, prefix string) error
}

// GetOrLoad returns the cached value for key, or calls load and stores its
// result. Cache failures are logged and never fail the read.
func GetOrLoad[T any](ctx context.Context, c Cache, log *logger.Logger, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	data, err := c.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		if uerr := json.Unmarshal(data, &cached); uerr == nil {
			metrics.RecordCacheLookup(true)
			return cached, nil
		} else if log != nil {
			log.WithError(uerr).WithField("key", key).Warn("discarding undecodable cache entry")
		}
	case !errors.Is(err, ErrMiss) && log != nil:
		log.WithError(err).WithField("key", key).Warn("cache get failed")
	}
	metrics.RecordCacheLookup(false)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if encoded, merr := json.Marshal(value); merr == nil {
		if serr := c.Set(ctx, key, encoded, ttl); serr != nil && log != nil {
			log.WithError(serr).WithField("key", key).Warn("cache set failed")
		}
	}
	return value, nil
}
