package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out consecutive operations by a fixed delay
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing one operation per delay.
// A non-positive delay disables limiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	if delay <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next operation may start or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
