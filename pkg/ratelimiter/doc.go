// Package ratelimiter provides token bucket rate limiting with in-memory and
// Redis storage and a chi-compatible HTTP middleware.
//
// A bucket holds up to Capacity tokens and regains RefillRate tokens every
// RefillInterval. Requests that do not fit are rejected without draining the
// bucket further.
//
//	store := ratelimiter.NewRedisStore(client, "storefront:")
//	limiter, err := ratelimiter.NewBucket(store, cfg.RateLimit)
//	if err != nil {
//		return err
//	}
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.ByIP(), log)).Post("/otp/request", h)
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on every response and Retry-After on 429s.
package ratelimiter
