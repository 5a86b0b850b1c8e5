package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minervahome/brain/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

// Telegram caps bots at roughly 30 messages per second; the default stays
// under that with headroom for retries.
const (
	defaultSendLimitPerSec int64 = 25
	waitBackoff                  = 10 * time.Millisecond
	windowSeconds                = 1
)

// Fixed one-second window: INCR the per-channel counter, arm its expiry on
// first hit, admit while under the limit.
var windowScript = goredis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if hits > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*SendLimiter)(nil)

// SendLimiter is a redis-backed per-channel send limiter shared by every
// process instance, so the cap holds across replicas.
type SendLimiter struct {
	rdb   *goredis.Client
	limit int64
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSendLimiter(rdb *goredis.Client, limitPerSec int) (*SendLimiter, error) {
	return newSendLimiter(rdb, int64(limitPerSec), time.Now, sleepWithContext)
}

func newSendLimiter(
	rdb *goredis.Client,
	limitPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*SendLimiter, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultSendLimitPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &SendLimiter{
		rdb:   rdb,
		limit: limitPerSec,
		now:   nowFn,
		sleep: sleepFn,
	}, nil
}

func (l *SendLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("send limiter is not initialized")
	}

	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		return false, fmt.Errorf("channel is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("send:%s:%d", channel, l.now().UTC().Unix())
	admitted, err := windowScript.Run(ctx, l.rdb, []string{key}, l.limit, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate send limit: %w", err)
	}

	return admitted == 1, nil
}

// Wait blocks until the channel has budget or the context ends.
func (l *SendLimiter) Wait(ctx context.Context, channel string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		allowed, err := l.Allow(ctx, channel)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		if err := l.sleep(ctx, waitBackoff); err != nil {
			return err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
