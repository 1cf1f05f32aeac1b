package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Jitter transforms a computed delay. It must return a non-negative, finite
// duration; the Calculator falls back to the un-jittered delay otherwise.
type Jitter func(time.Duration) time.Duration

// FullJitter picks uniformly in [0, d].
func FullJitter() Jitter {
	return func(d time.Duration) time.Duration {
		if d <= 0 {
			return 0
		}
		return time.Duration(rand.Int63n(int64(d) + 1))
	}
}

// Calculator combines a base-delay strategy with an optional jitter
// transform and a hard limit.
type Calculator struct {
	strategy Strategy
	jitter   Jitter
}

// NewCalculator creates a calculator using the given strategy and no jitter.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{strategy: strategy}
}

// WithJitter returns a copy of the calculator using the given jitter
// transform.
func (c *Calculator) WithJitter(j Jitter) *Calculator {
	return &Calculator{strategy: c.strategy, jitter: j}
}

// Delay computes the delay for a retry attempt: strategy, then jitter, then
// clamp to limit. A jitter result that is negative or not finite is
// discarded in favor of the un-jittered delay.
func (c *Calculator) Delay(attempt int, base, limit time.Duration) time.Duration {
	d := c.strategy.Delay(attempt, base, limit)
	if c.jitter != nil {
		j := c.jitter(d)
		if j >= 0 && !overflowed(j) {
			d = j
		}
	}
	return clamp(d, limit)
}

func overflowed(d time.Duration) bool {
	f := float64(d)
	return math.IsNaN(f) || math.IsInf(f, 0)
}
