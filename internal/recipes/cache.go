package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/metrics"
	"github.com/fdg312/plateplan/internal/storage"
)

const cacheKeyPrefix = "recipe:"

// CacheClient is the subset of redis.Cmdable the cache uses.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedCatalog is a read-through cache in front of another Catalog. Lookups
// by id go through Redis; listings always hit the underlying catalog. Any
// Redis failure falls back to the underlying catalog.
type CachedCatalog struct {
	next    Catalog
	client  CacheClient
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewCachedCatalog(next Catalog, client CacheClient, ttl time.Duration, logger *zap.Logger, m *metrics.Collector) *CachedCatalog {
	return &CachedCatalog{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

func (c *CachedCatalog) GetRecipe(ctx context.Context, id string) (*storage.Recipe, error) {
	key := cacheKeyPrefix + id

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var recipe storage.Recipe
		if jerr := json.Unmarshal(raw, &recipe); jerr == nil {
			c.metrics.RecipeCache("hit")
			return &recipe, nil
		}
		c.logger.Warn("recipe cache entry is corrupt", zap.String("key", key))
		c.metrics.RecipeCache("error")
	case errors.Is(err, redis.Nil):
		c.metrics.RecipeCache("miss")
	default:
		c.logger.Warn("recipe cache get failed", zap.String("key", key), zap.Error(err))
		c.metrics.RecipeCache("error")
	}

	recipe, err := c.next.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(recipe)
	if err != nil {
		return recipe, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("recipe cache set failed", zap.String("key", key), zap.Error(err))
	}
	return recipe, nil
}

func (c *CachedCatalog) ListRecipes(ctx context.Context, filter storage.RecipeFilter) ([]storage.Recipe, error) {
	return c.next.ListRecipes(ctx, filter)
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
