package arxiv

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter enforces a minimum spacing plus randomized jitter between any
// two outbound calls made through the same instance. One instance is shared
// by the search and download traffic of an orchestrator so both draw from a
// single pacing budget.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	jitterLow   time.Duration
	jitterHigh  time.Duration
	lastCall    time.Time

	// injectable for deterministic tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	randf func() float64
}

// NewRateLimiter creates a limiter with the given minimum interval and
// [low, high) jitter range.
func NewRateLimiter(minInterval, jitterLow, jitterHigh time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		jitterLow:   jitterLow,
		jitterHigh:  jitterHigh,
		now:         time.Now,
		sleep:       sleepContext,
		randf:       rand.Float64,
	}
}

// Wait blocks until at least minInterval has elapsed since the previous Wait
// on this instance, then sleeps an additional uniform random jitter, then
// records the new last-call time. Returns early only on context cancellation.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.lastCall.IsZero() {
		elapsed := rl.now().Sub(rl.lastCall)
		if elapsed < rl.minInterval {
			if err := rl.sleep(ctx, rl.minInterval-elapsed); err != nil {
				return err
			}
		}
	}

	if jitter := rl.jitter(); jitter > 0 {
		if err := rl.sleep(ctx, jitter); err != nil {
			return err
		}
	}

	rl.lastCall = rl.now()
	return nil
}

func (rl *RateLimiter) jitter() time.Duration {
	span := rl.jitterHigh - rl.jitterLow
	if span <= 0 {
		return rl.jitterLow
	}
	return rl.jitterLow + time.Duration(rl.randf()*float64(span))
}

// sleepContext sleeps for d with context cancellation support.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
