package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// ResultCache stores resolved references keyed by mode, region and the
// normalized query text. A nil *ResultCache is a valid no-op cache.
type ResultCache struct {
	cache  domain.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewResultCache wraps cache. It returns nil when cache is nil.
func NewResultCache(cache domain.CacheRepository, ttl time.Duration, logger *zap.Logger) *ResultCache {
	if cache == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(q domain.Query) string {
	return fmt.Sprintf("resolve:%s:%s:%s", q.Mode, strings.ToLower(q.Region), normalizeName(q.Text))
}

// Load returns the cached references for q.
func (c *ResultCache) Load(ctx context.Context, q domain.Query) ([]domain.FoodReference, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey(q)
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var refs []domain.FoodReference
	if err := json.Unmarshal(data, &refs); err != nil {
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}
	return refs, len(refs) > 0
}

// Store caches refs for q. Failures are logged and otherwise ignored.
func (c *ResultCache) Store(ctx context.Context, q domain.Query, refs []domain.FoodReference) {
	if c == nil || len(refs) == 0 {
		return
	}
	key := cacheKey(q)
	data, err := json.Marshal(refs)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
