package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state. Implementations must apply refill and
// consumption atomically per key. A request that does not fit leaves the
// bucket untouched and reports a negative remaining count.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// refill computes the bucket after elapsed full intervals since last.
func refill(tokens int, last, now time.Time, cfg Config) (int, time.Time) {
	if now.Before(last) {
		return tokens, last
	}
	maxIntervals := int64(cfg.Capacity/cfg.RefillRate + 1)
	intervals := min(int64(now.Sub(last)/cfg.RefillInterval), maxIntervals)
	if intervals <= 0 {
		return tokens, last
	}
	tokens = min(tokens+int(intervals)*cfg.RefillRate, cfg.Capacity)
	if intervals == maxIntervals {
		return tokens, now
	}
	return tokens, last.Add(time.Duration(intervals) * cfg.RefillInterval)
}
