package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the base delay for a retry attempt, before jitter.
// Attempt numbering starts at 1 for the first retry.
type Strategy interface {
	Delay(attempt int, base, limit time.Duration) time.Duration
}

// Exponential doubles the delay for every attempt after the first:
// base * 2^(attempt-1), clamped to limit (limit <= 0 means unbounded).
type Exponential struct{}

// Delay implements the Strategy interface.
func (Exponential) Delay(attempt int, base, limit time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	// Cap the shift so the multiplication cannot overflow.
	if attempt > 31 {
		attempt = 31
	}
	d := time.Duration(float64(base) * pow2(attempt-1))
	return clamp(d, limit)
}

// Decorrelated implements AWS-style decorrelated jitter: a uniform pick in
// [base, min(limit, base*3^attempt)]. It spreads concurrent retriers more
// evenly than exponential backoff with uniform jitter.
type Decorrelated struct{}

// Delay implements the Strategy interface.
func (Decorrelated) Delay(attempt int, base, limit time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		return base
	}
	if attempt > 20 {
		attempt = 20
	}
	upper := float64(base)
	for i := 0; i < attempt; i++ {
		upper *= 3
		if limit > 0 && upper >= float64(limit) {
			upper = float64(limit)
			break
		}
	}
	if upper < float64(base) {
		upper = float64(base)
	}
	d := time.Duration(float64(base) + rand.Float64()*(upper-float64(base)))
	return clamp(d, limit)
}

func pow2(n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 2
	}
	return result
}

func clamp(d, limit time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
