// Package geocache caches successful geocoding resolutions in a key-value
// store. Addresses do not move, so entries carry no TTL; the cache is
// cleared only on explicit dataset refresh.
package geocache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/db"
	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/geo"
)

var cacheKeyPrefix = domain.KeyPrefix + "geocode:"

// geocoder is the consumer interface for the upstream resolver (ISP).
type geocoder interface {
	Resolve(ctx context.Context, query string) (geo.Resolution, error)
}

// store is the consumer interface for the cache backend (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// CachedResolver caches geocoding resolutions in a key-value store.
type CachedResolver struct {
	inner      geocoder
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner geocoder,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedResolver {
	return &CachedResolver{
		inner:      inner,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// cachedResolution is the stored form of a geo.Resolution.
type cachedResolution struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Confidence string  `json:"confidence"`
	Label      string  `json:"label,omitempty"`
}

// Resolve returns a cached resolution or calls the inner geocoder.
// Only successful resolutions are cached; failures always fall through so a
// transient upstream error is never pinned.
func (c *CachedResolver) Resolve(ctx context.Context, query string) (geo.Resolution, error) {
	key := c.cacheKey(query)

	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}

	c.incCache("miss")

	res, err := c.inner.Resolve(ctx, query)
	if err != nil {
		return geo.Resolution{}, fmt.Errorf("resolve address: %w", err)
	}

	c.putToCache(ctx, key, res)
	return res, nil
}

// Clear drops every cached resolution. Called on dataset reload.
func (c *CachedResolver) Clear(ctx context.Context) error {
	keys, err := c.store.Scan(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan geocode cache: %w", err)
	}
	for _, key := range keys {
		if err := c.store.Del(ctx, key); err != nil {
			return fmt.Errorf("clear geocode cache: %w", err)
		}
	}
	return nil
}

func (c *CachedResolver) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedResolver) cacheKey(query string) string {
	h := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedResolver) getFromCache(ctx context.Context, key string) (geo.Resolution, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached resolution", zap.String("key", key), zap.Error(err))
		}
		return geo.Resolution{}, false
	}
	if len(data) == 0 {
		return geo.Resolution{}, false
	}

	var cached cachedResolution
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("Failed to parse cached resolution", zap.String("key", key), zap.Error(err))
		return geo.Resolution{}, false
	}

	coord, err := geo.NewCoordinate(cached.Lat, cached.Lon)
	if err != nil {
		c.logger.Warn("Cached resolution out of range", zap.String("key", key), zap.Error(err))
		return geo.Resolution{}, false
	}

	return geo.NewResolution(coord, geo.Confidence(cached.Confidence), cached.Label), true
}

func (c *CachedResolver) putToCache(ctx context.Context, key string, res geo.Resolution) {
	data, err := json.Marshal(cachedResolution{
		Lat:        res.Coordinate().Lat(),
		Lon:        res.Coordinate().Lon(),
		Confidence: string(res.Confidence()),
		Label:      res.Label(),
	})
	if err != nil {
		c.logger.Warn("Failed to encode resolution", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("Failed to cache resolution", zap.String("key", key), zap.Error(err))
	}
}
