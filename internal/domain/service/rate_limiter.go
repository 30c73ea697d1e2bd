package service

import (
	"context"
	"time"
)

// RateDecision is the outcome of taking one token from a bucket.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter throttles requests per key.
type RateLimiter interface {
	Take(ctx context.Context, key string) (*RateDecision, error)
}
