package ratelimiting

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RequestLimiter throttles outbound requests to the game backend
type RequestLimiter interface {
	// Wait blocks until a request may be sent or ctx is done
	Wait(ctx context.Context) error
}

type tokenBucketRateLimiter struct {
	limiter *rate.Limiter
}

func (l *tokenBucketRateLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

type RefillPerSecond float64
type BurstSize int

func NewTokenBucketRateLimiter(refillPerSecond RefillPerSecond, burstSize BurstSize) RequestLimiter {
	return &tokenBucketRateLimiter{
		limiter: rate.NewLimiter(rate.Limit(refillPerSecond), int(burstSize)),
	}
}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}

// NewRequestLimiter returns an unlimited limiter when refillPerSecond is zero
func NewRequestLimiter(refillPerSecond float64) RequestLimiter {
	if refillPerSecond <= 0 {
		return unlimited{}
	}
	burst := int(refillPerSecond)
	if burst < 1 {
		burst = 1
	}
	return NewTokenBucketRateLimiter(RefillPerSecond(refillPerSecond), BurstSize(burst))
}
