package kirimgo

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	internalbackoff "github.com/ambiyansyah-risyal/kirimgo/internal/backoff"
)

// RetryDecision is the tri-state result of a ShouldRetry predicate.
type RetryDecision int

const (
	// DecisionDefault defers to the built-in retry policy.
	DecisionDefault RetryDecision = iota
	// DecisionRetry forces a retry, bypassing the timeout and status
	// policies. The method allowlist still applies; it is checked before
	// the predicate runs.
	DecisionRetry
	// DecisionStop stops retrying immediately.
	DecisionStop
)

// RetryConfig is the retry policy for one client. The zero value disables
// retries; DefaultRetryConfig returns the stock policy.
type RetryConfig struct {
	// Limit is the maximum number of retries; Limit+1 total attempts.
	Limit int

	// Methods lists the HTTP methods eligible for retry.
	Methods []string

	// StatusCodes lists the response status codes eligible for retry.
	StatusCodes []int

	// AfterStatusCodes lists the status codes for which a server-supplied
	// delay hint is honored. 413 is only ever retried with such a hint.
	AfterStatusCodes []int

	// MaxRetryAfter caps a server-supplied delay; 0 means uncapped. A
	// hint above the cap is clamped, not rejected.
	MaxRetryAfter time.Duration

	// BackoffLimit caps the computed backoff delay; 0 means unbounded.
	BackoffLimit time.Duration

	// Delay overrides the delay function; attempt numbering starts at 1.
	// nil means exponential backoff: 300ms * 2^(attempt-1).
	Delay func(attempt int) time.Duration

	// Jitter applies uniform jitter in [0, delay] to computed delays.
	// Server-supplied delays are always honored exactly.
	Jitter bool

	// JitterFunc replaces the uniform jitter with a custom transform; a
	// negative result falls back to the un-jittered delay.
	JitterFunc func(time.Duration) time.Duration

	// RetryOnTimeout permits retrying attempts that failed on the total
	// timeout budget. It is almost always pointless because the budget is
	// shared across attempts, but a ShouldRetry predicate may want it.
	RetryOnTimeout bool

	// ShouldRetry, when set, is consulted before the built-in policy.
	ShouldRetry func(err error, retryCount int) RetryDecision
}

// defaultRetryBase is the base of the default exponential backoff.
const defaultRetryBase = 300 * time.Millisecond

// DefaultRetryConfig returns the stock retry policy: 2 retries of
// idempotent methods on transient statuses, with delay hints honored for
// 413, 429 and 503.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Limit: 2,
		Methods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodDelete, http.MethodOptions, http.MethodTrace,
		},
		StatusCodes:      []int{408, 413, 429, 500, 502, 503, 504},
		AfterStatusCodes: []int{413, 429, 503},
	}
}

// retryVerdict is the engine's answer for one failed attempt.
type retryVerdict struct {
	retry   bool
	delay   time.Duration
	request *http.Request // replacement from a forced-retry directive
}

// decideRetry classifies a failure and decides whether attempt number
// retryCount (1-based) may proceed, and after what delay. Each step
// short-circuits, in order: limit, forced retry, method allowlist,
// ShouldRetry, local policy rejections, timeout policy, status policy,
// delay hints, default backoff.
func (c *Client) decideRetry(err error, method string, retryCount int) retryVerdict {
	r := &c.retry

	if retryCount > r.Limit {
		return retryVerdict{}
	}

	var forced *ForcedRetryError
	if errors.As(err, &forced) {
		return retryVerdict{
			retry:   true,
			delay:   c.forcedRetryDelay(forced, retryCount),
			request: forced.Directive.Request,
		}
	}

	if !methodAllowed(method, r.Methods) {
		return retryVerdict{}
	}

	if r.ShouldRetry != nil {
		switch r.ShouldRetry(err, retryCount) {
		case DecisionRetry:
			return retryVerdict{retry: true, delay: c.backoffDelay(retryCount)}
		case DecisionStop:
			return retryVerdict{}
		}
	}

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return retryVerdict{}
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) && !r.RetryOnTimeout {
		return retryVerdict{}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if !statusAllowed(httpErr.StatusCode, r.StatusCodes) {
			return retryVerdict{}
		}
		hint, hasHint := retryAfterDelay(httpErr.Response)
		if hasHint && statusAllowed(httpErr.StatusCode, r.AfterStatusCodes) {
			return retryVerdict{retry: true, delay: clampDelay(hint, r.MaxRetryAfter)}
		}
		if httpErr.StatusCode == http.StatusRequestEntityTooLarge {
			// 413 without an explicit hint is never worth repeating.
			return retryVerdict{}
		}
	}

	return retryVerdict{retry: true, delay: c.backoffDelay(retryCount)}
}

// forcedRetryDelay resolves the delay of a forced-retry directive: explicit
// delay first, then a status-based hint from the captured response, then
// the default backoff.
func (c *Client) forcedRetryDelay(forced *ForcedRetryError, retryCount int) time.Duration {
	d := forced.Directive
	if d.Delay > 0 {
		return clampDelay(d.Delay, 0)
	}
	if d.StatusBasedDelay && forced.response != nil {
		if hint, ok := retryAfterDelay(forced.response); ok {
			return clampDelay(hint, c.retry.MaxRetryAfter)
		}
	}
	return c.backoffDelay(retryCount)
}

// backoffDelay computes the policy delay for attempt retryCount (1-based):
// the Delay function or default exponential, then jitter, clamped to
// BackoffLimit and the safe timer ceiling. Server-supplied delays never
// pass through here.
func (c *Client) backoffDelay(retryCount int) time.Duration {
	r := &c.retry

	var d time.Duration
	if r.Delay != nil {
		d = r.Delay(retryCount)
	} else {
		d = c.backoff.Delay(retryCount, defaultRetryBase, r.BackoffLimit)
	}
	if d < 0 {
		d = 0
	}

	jitter := r.JitterFunc
	if jitter == nil && r.Jitter {
		jitter = internalbackoff.FullJitter()
	}
	if jitter != nil {
		if j := jitter(d); j >= 0 {
			d = j
		}
	}

	if r.BackoffLimit > 0 && d > r.BackoffLimit {
		d = r.BackoffLimit
	}
	return clampDelay(d, 0)
}

func clampDelay(d, limit time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if limit > 0 && d > limit {
		d = limit
	}
	if d > maxSafeTimeout {
		d = maxSafeTimeout
	}
	return d
}

func methodAllowed(method string, allowed []string) bool {
	for _, m := range allowed {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func statusAllowed(status int, allowed []int) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// retryAfterHeaders is the delay hint priority order: the standard
// Retry-After header first, then the rate-limit reset variants in fixed
// vendor priority.
var retryAfterHeaders = []string{
	"Retry-After",
	"RateLimit-Reset",
	"X-RateLimit-Reset",
	"X-Rate-Limit-Reset",
}

// retryAfterEpoch is the threshold above which a numeric delay hint is
// treated as an absolute Unix timestamp rather than delta-seconds. Small
// relative values can never be mistaken for timestamps, which guards
// against clock skew.
var retryAfterEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// retryAfterDelay extracts a server-supplied retry delay from resp, if any.
// Numeric values are delta-seconds, or an absolute Unix timestamp when at
// or past retryAfterEpoch; otherwise the value is parsed as an HTTP date.
func retryAfterDelay(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	for _, name := range retryAfterHeaders {
		value := strings.TrimSpace(resp.Header.Get(name))
		if value == "" {
			continue
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			if n >= retryAfterEpoch.Unix() {
				d := time.Until(time.Unix(n, 0))
				if d < 0 {
					d = 0
				}
				return d, true
			}
			if n < 0 {
				n = 0
			}
			return time.Duration(n) * time.Second, true
		}
		if t, err := http.ParseTime(value); err == nil {
			d := time.Until(t)
			if d < 0 {
				d = 0
			}
			return d, true
		}
	}
	return 0, false
}
