package cache

import (
	"context"
	"encoding/json"
	"time"

	"companyresolver/config"

	"github.com/go-redis/redis/v8"
)

// Client is the part of a Redis client that Memoize needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewClient connects to the configured Redis server. It returns nil when
// no address is configured, which turns caching off.
func NewClient(cfg config.Redis) Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Memoize function for caching any function result in Redis. Failed calls
// are not cached, and cache errors fall through to fn.
func Memoize[T any](ctx context.Context, client Client, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if client == nil {
		return fn()
	}
	var result T

	// Try fetching from cache
	cachedData, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(cachedData, &result); jsonErr == nil {
			return result, nil
		}
	}

	// Call the actual function
	result, err = fn()
	if err != nil {
		return result, err
	}

	// Store result in cache
	cacheData, _ := json.Marshal(result)
	client.Set(ctx, key, cacheData, ttl)

	return result, nil
}
