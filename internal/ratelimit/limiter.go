package ratelimit

import "context"

// RateLimiter bounds outbound delivery throughput per channel. The telegram
// Bot API enforces its own caps, so the dispatcher waits here before every
// send instead of handling 429s after the fact.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}

// Nop admits everything. Used when no limiter backend is configured.
type Nop struct{}

func NewNop() Nop { return Nop{} }

func (Nop) Allow(context.Context, string) (bool, error) { return true, nil }

func (Nop) Wait(context.Context, string) error { return nil }
