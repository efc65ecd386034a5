package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const (
	providerListKeyPrefix = "catalog:providers:"
	providerKeyPrefix     = "catalog:provider:"
)

// CacheClient wraps a Redis client with caching for provider catalog data
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewCacheClientFromRedis(client, config.DefaultTTL), nil
}

// NewCacheClientFromRedis wraps an existing Redis client
func NewCacheClientFromRedis(client *redis.Client, defaultTTL time.Duration) *CacheClient {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &CacheClient{
		redis:      client,
		defaultTTL: defaultTTL,
	}
}

// cachedProviders is the envelope stored for a provider list
type cachedProviders struct {
	Providers []domain.ProviderRecord `json:"providers"`
	CachedAt  time.Time               `json:"cached_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// GetProviders retrieves the cached active provider list of a catalog source.
// A miss, an expired entry and a corrupted entry all report found=false.
func (c *CacheClient) GetProviders(ctx context.Context, source string) ([]domain.ProviderRecord, bool, error) {
	key := providerListKeyPrefix + source

	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get provider cache: %w", err)
	}

	var cached cachedProviders
	if err := json.Unmarshal(val, &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Providers, true, nil
}

// SetProviders caches the active provider list of a catalog source
func (c *CacheClient) SetProviders(ctx context.Context, source string, providers []domain.ProviderRecord, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	data, err := json.Marshal(cachedProviders{
		Providers: providers,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal provider cache data: %w", err)
	}

	return c.redis.Set(ctx, providerListKeyPrefix+source, data, ttl).Err()
}

// GetProvider retrieves a single cached provider
func (c *CacheClient) GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, bool, error) {
	key := providerKeyPrefix + id

	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get provider cache: %w", err)
	}

	var provider domain.ProviderRecord
	if err := json.Unmarshal(val, &provider); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}
	return &provider, true, nil
}

// SetProvider caches a single provider
func (c *CacheClient) SetProvider(ctx context.Context, provider *domain.ProviderRecord, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(provider)
	if err != nil {
		return fmt.Errorf("failed to marshal provider: %w", err)
	}
	return c.redis.Set(ctx, providerKeyPrefix+provider.ID, data, ttl).Err()
}

// InvalidateCatalog removes every cached provider entry
func (c *CacheClient) InvalidateCatalog(ctx context.Context) error {
	var keys []string
	for _, pattern := range []string{providerListKeyPrefix + "*", providerKeyPrefix + "*"} {
		iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan keys for pattern %s: %w", pattern, err)
		}
	}

	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

// Ping checks if Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}
