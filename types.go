package kirimgo

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Option represents a configuration option.
type Option func(*Client)

// RoundTripper represents the HTTP transport interface.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc adapts a function to the RoundTripper interface.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements the RoundTripper interface.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware wraps the transport call of a single attempt. Middleware runs
// inside the retry loop, below the hook pipeline.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// BackoffStrategy selects the base-delay algorithm used when no custom
// Delay function is configured.
type BackoffStrategy int

const (
	// ExponentialBackoff doubles the delay each retry.
	ExponentialBackoff BackoffStrategy = iota
	// DecorrelatedBackoff picks uniformly in a widening window, AWS style.
	DecorrelatedBackoff
)

// Options is the read-only snapshot of the resolved configuration exposed
// to hook callbacks. It is recomputed lazily per attempt and invalidated
// whenever the active request is replaced. Header is the live header map of
// the outgoing request; mutating it affects what is sent. Everything else
// is a copy and must not be modified.
type Options struct {
	Method          string
	URL             *url.URL
	Header          http.Header
	Retry           RetryConfig
	Timeout         time.Duration
	ThrowHTTPErrors bool
}

// DeduplicationKeyFunc derives the coalescing key for a request.
type DeduplicationKeyFunc func(*http.Request) string

// DeduplicationCondition reports whether a request may be coalesced with
// identical in-flight requests.
type DeduplicationCondition func(*http.Request) bool

// DefaultDeduplicationKeyFunc keys on method and full URL.
func DefaultDeduplicationKeyFunc(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// DefaultDeduplicationCondition coalesces only safe methods.
func DefaultDeduplicationCondition(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

// CircuitBreakerConfig holds circuit breaker configuration. Zero fields
// take defaults (5 failures to open, 60s recovery, 2 successes to close).
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// DebugConfig controls diagnostic logging. All flags require a Logger.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogHooks     bool
	LogRateLimit bool
	LogCircuit   bool
	RequestIDGen func() string
}

// DefaultDebugConfig enables every category and generates UUID request IDs.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogHooks:     true,
		LogRateLimit: true,
		LogCircuit:   true,
		RequestIDGen: uuid.NewString,
	}
}
