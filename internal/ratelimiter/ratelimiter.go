// Package ratelimiter paces outgoing RPC calls.
//
// A probe pointed at a production server must not flood it; every client
// of a probe session waits on one shared limiter before sending a call.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket shared by the clients of one session.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New returns a limiter allowing callsPerSecond calls with bursts of up
// to burst calls. Zero callsPerSecond returns nil (unlimited). A zero burst
// is raised to 1.
func New(callsPerSecond float64, burst int) *RateLimiter {
	if callsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst)}
}

// Wait blocks until a call may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Limit returns the configured rate in calls per second, 0 when unlimited.
func (r *RateLimiter) Limit() float64 {
	if r == nil {
		return 0
	}
	return float64(r.limiter.Limit())
}
