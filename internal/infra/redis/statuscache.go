package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	statusCacheKey        = "status:today"
	defaultStatusCacheTTL = 10 * time.Second
)

// StatusCache keeps the aggregated status document in Redis for a few
// seconds so a chatty dashboard does not hammer Postgres.
type StatusCache struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

func NewStatusCache(client *goredis.Client, ttl time.Duration) (*StatusCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultStatusCacheTTL
	}

	return &StatusCache{
		client: client,
		key:    statusCacheKey,
		ttl:    ttl,
	}, nil
}

func (c *StatusCache) Get(ctx context.Context) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, fmt.Errorf("status cache is not initialized")
	}

	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read status cache: %w", err)
	}

	return data, true, nil
}

func (c *StatusCache) Set(ctx context.Context, data []byte) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("status cache is not initialized")
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write status cache: %w", err)
	}

	return nil
}
