package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/mnemosyne/internal/store"
)

const (
	mappingKeyPrefix = "mnemosyne:mapping:"
	mappingTTL       = 24 * time.Hour
)

// RedisCache is the hot tier in front of the game-id mapping table. Entries
// expire; the mapping table remains the source of truth.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
	}, nil
}

// Close closes the Redis connection.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// HealthCheck pings Redis to verify the connection.
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// GetMapping returns the cached mapping for a primary id, or (nil, nil) on
// a cache miss.
func (rc *RedisCache) GetMapping(ctx context.Context, primaryID string) (*store.GameIDMapping, error) {
	raw, err := rc.client.Get(ctx, mappingKeyPrefix+primaryID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached mapping %s: %w", primaryID, err)
	}

	m := &store.GameIDMapping{}
	if err := json.Unmarshal([]byte(raw), m); err != nil {
		// A corrupt entry is a miss, not a failure; the table has the truth.
		return nil, nil
	}

	return m, nil
}

// SetMapping caches a resolved mapping.
func (rc *RedisCache) SetMapping(ctx context.Context, m *store.GameIDMapping) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding mapping %s: %w", m.PrimaryID, err)
	}

	return rc.client.Set(ctx, mappingKeyPrefix+m.PrimaryID, raw, mappingTTL).Err()
}

// InvalidateMapping drops a cached mapping, forcing the next lookup back to
// the table.
func (rc *RedisCache) InvalidateMapping(ctx context.Context, primaryID string) error {
	return rc.client.Del(ctx, mappingKeyPrefix+primaryID).Err()
}
