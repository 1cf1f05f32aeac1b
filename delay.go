package kirimgo

import (
	"context"
	"math"
	"time"
)

// maxSafeTimeout is the largest timeout or retry delay the client accepts.
// It matches the 32-bit millisecond ceiling common to timer implementations;
// configuration values beyond it fail validation before any dispatch.
const maxSafeTimeout = time.Duration(math.MaxInt32) * time.Millisecond

// sleep waits for d or until ctx is done, whichever comes first. A done
// context returns its cause so timeout budgets surface as TimeoutError
// rather than a bare context error.
func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	if d <= 0 {
		return nil
	}
	if d > maxSafeTimeout {
		d = maxSafeTimeout
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}
