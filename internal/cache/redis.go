package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kthyng/ocean-data-gateway/internal/federation"
)

const redisKeyPrefix = "odg:result:"

// Redis is a result cache backed by a Redis server, for deployments where
// several gateway instances should share cached batches. Expiry is delegated
// to Redis via per-key TTLs.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// RedisConfig carries the connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection before returning.
func NewRedis(cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("connected to redis cache backend", zap.String("addr", cfg.Addr))

	return &Redis{
		client: client,
		logger: logger.With(zap.String("component", "cache")),
	}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get fetches and decodes one entry. A missing key is an absence, not an
// error; a decode failure is surfaced so the coordinator degrades it to a
// miss and logs it.
func (r *Redis) Get(ctx context.Context, fingerprint string) (federation.CacheEntry, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return federation.CacheEntry{}, false, nil
	}
	if err != nil {
		return federation.CacheEntry{}, false, fmt.Errorf("cache get: %w", err)
	}

	var entry federation.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return federation.CacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Expired(time.Now()) {
		return federation.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Put stores one entry under its fingerprint with the entry's own TTL, so
// Redis reclaims it even without a sweep.
func (r *Redis) Put(ctx context.Context, entry federation.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+entry.Fingerprint, data, entry.TTL).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Invalidate removes one entry.
func (r *Redis) Invalidate(ctx context.Context, fingerprint string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Clear removes every entry under the gateway's key prefix, leaving other
// tenants of the same Redis database untouched.
func (r *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache clear: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
