// Package cache provides a Redis-backed store for upstream capability
// documents so slow WMS endpoints are not hit on every catalog request.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultDocumentTTL is the capability-document lifetime when the
// configuration does not set one.
const DefaultDocumentTTL = 15 * time.Minute

const keyCapabilities = "layercatalog:capabilities:" // + service slug

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DocumentTTL time.Duration

	// DisableOnError stops touching Redis for the rest of the process
	// lifetime after the first failed operation.
	DisableOnError bool
}

// Cache stores capability documents with graceful fallback: when Redis is
// unreachable every lookup is a miss and every store is a no-op.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a cache backed by the configured Redis server. An unreachable
// server is not an error; the cache starts disabled instead.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	if cfg.DocumentTTL == 0 {
		cfg.DocumentTTL = DefaultDocumentTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Disabled returns a cache that never stores anything, for deployments
// without a Redis server.
func Disabled(logger zerolog.Logger) *Cache {
	return &Cache{
		logger:   logger.With().Str("component", "cache").Logger(),
		disabled: true,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// GetDocument retrieves the cached capability document for a service.
func (c *Cache) GetDocument(ctx context.Context, slug string) ([]byte, bool) {
	if !c.IsAvailable() {
		return nil, false
	}

	doc, err := c.client.Get(ctx, keyCapabilities+slug).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.handleError(err, "get")
		return nil, false
	}

	c.logger.Debug().Str("service", slug).Int("bytes", len(doc)).Msg("capability document cache hit")
	return doc, true
}

// SetDocument caches the capability document for a service.
func (c *Cache) SetDocument(ctx context.Context, slug string, doc []byte) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Set(ctx, keyCapabilities+slug, doc, c.config.DocumentTTL).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	c.logger.Debug().Str("service", slug).Int("bytes", len(doc)).Msg("caching capability document")
	return nil
}

// InvalidateDocument removes the cached capability document for a service.
func (c *Cache) InvalidateDocument(ctx context.Context, slug string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, keyCapabilities+slug).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// FlushAll removes every cached capability document.
func (c *Cache) FlushAll(ctx context.Context) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, keyCapabilities+"*", 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}
