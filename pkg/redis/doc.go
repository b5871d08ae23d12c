// Package redis connects to Redis with go-redis v9.
//
// Connect retries the initial ping within a bounded time. The returned
// client backs the Redis OTP store and the distributed rate limiter.
package redis
