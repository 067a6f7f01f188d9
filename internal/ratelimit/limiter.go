// Package ratelimit throttles venue requests with token buckets. One
// default limiter covers general traffic; named buckets carry their own
// limits for endpoints the venue meters separately (order placement).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a default token bucket plus named per-endpoint buckets.
// Safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	def      *rate.Limiter
	buckets  map[string]*rate.Limiter
	requests int
	period   time.Duration
}

// New creates a limiter allowing the given requests per period, with a
// burst of the full request count.
func New(requests int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		def:      rate.NewLimiter(limit(requests, period), requests),
		buckets:  make(map[string]*rate.Limiter),
		requests: requests,
		period:   period,
	}
}

func limit(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}

// Wait blocks until the default limiter admits a request or the context
// is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.def.Wait(ctx)
}

// WaitBucket blocks on the named bucket, which is created with the
// default rate on first use.
func (r *RateLimiter) WaitBucket(ctx context.Context, bucket string) error {
	return r.getBucket(bucket).Wait(ctx)
}

// Allow reports whether the default limiter admits a request right now.
func (r *RateLimiter) Allow() bool {
	return r.def.Allow()
}

// AllowBucket reports whether the named bucket admits a request right now.
func (r *RateLimiter) AllowBucket(bucket string) bool {
	return r.getBucket(bucket).Allow()
}

// SetBucketLimit sets the named bucket's rate, creating it if needed.
func (r *RateLimiter) SetBucketLimit(bucket string, requests int, period time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[bucket]; ok {
		b.SetLimit(limit(requests, period))
		b.SetBurst(requests)
		return
	}
	r.buckets[bucket] = rate.NewLimiter(limit(requests, period), requests)
}

func (r *RateLimiter) getBucket(bucket string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[bucket]
	if !ok {
		b = rate.NewLimiter(limit(r.requests, r.period), r.requests)
		r.buckets[bucket] = b
	}
	return b
}
