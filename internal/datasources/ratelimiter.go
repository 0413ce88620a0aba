package datasources

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket allowing calls per window, with a burst of
// the full window budget.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter refilling calls tokens evenly over window
func NewRateLimiter(calls int, window time.Duration) *RateLimiter {
	if calls <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(calls)), calls),
	}
}

// Acquire blocks until a token is available or ctx is done
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// Allow takes a token if one is available right now
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}
