package kirimgo

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for local policy rejections. Neither is ever retried.
var (
	// ErrCircuitOpen is returned when the circuit breaker is in open state.
	ErrCircuitOpen = errors.New("kirimgo: circuit open")

	// ErrRateLimited is returned when a request is denied by the client-side
	// rate limiter.
	ErrRateLimited = errors.New("kirimgo: rate limited")
)

// HTTPError reports a response whose status code falls outside the 2xx range.
// The response is retained so callers and beforeError hooks can inspect
// headers; the body is left open only on the error that finally surfaces.
type HTTPError struct {
	Response   *http.Response
	Request    *http.Request
	StatusCode int
}

func newHTTPError(req *http.Request, resp *http.Response) *HTTPError {
	return &HTTPError{
		Response:   resp,
		Request:    req,
		StatusCode: resp.StatusCode,
	}
}

// Error implements error interface.
func (e *HTTPError) Error() string {
	status := http.StatusText(e.StatusCode)
	if status == "" {
		status = "unknown status"
	}
	return fmt.Sprintf("kirimgo: %s %s failed with status %d %s",
		e.Request.Method, e.Request.URL, e.StatusCode, status)
}

// Is compares against other HTTPErrors by status code.
func (e *HTTPError) Is(target error) bool {
	var other *HTTPError
	if errors.As(target, &other) {
		return e.StatusCode == other.StatusCode
	}
	return false
}

// TimeoutError reports exhaustion of the total exchange budget. The budget
// spans every attempt, hook invocation and retry delay of one exchange; it is
// never reset between attempts.
type TimeoutError struct {
	Request *http.Request

	// Limit is the budget that was exhausted.
	Limit time.Duration
}

// Error implements error interface.
func (e *TimeoutError) Error() string {
	if e.Request != nil {
		return fmt.Sprintf("kirimgo: %s %s timed out after %v",
			e.Request.Method, e.Request.URL, e.Limit)
	}
	return fmt.Sprintf("kirimgo: request timed out after %v", e.Limit)
}

// Timeout reports true so the error satisfies net.Error style checks.
func (e *TimeoutError) Timeout() bool { return true }

// ForcedRetryDirective describes a retry requested by an afterResponse hook,
// independent of the response status.
type ForcedRetryDirective struct {
	// Delay overrides the backoff delay for the next attempt. Zero means
	// "use the default policy delay".
	Delay time.Duration

	// StatusBasedDelay derives the delay from the response's retry hint
	// headers instead, as if the status had been retryable.
	StatusBasedDelay bool

	// Request, when set, becomes the basis for the next attempt. beforeRetry
	// hooks may still replace it.
	Request *http.Request

	// Code is an optional diagnostic tag carried on the resulting error.
	Code string

	// Cause is an optional underlying reason.
	Cause error
}

// ForcedRetryError is produced by ForceRetry inside an afterResponse hook.
// The retry engine special-cases it: the method allowlist, ShouldRetry and
// timeout policy are all bypassed, but the attempt still counts against the
// retry limit and the total timeout budget. If the limit is exhausted while a
// forced retry is pending, this error is what surfaces to the caller.
type ForcedRetryError struct {
	Directive ForcedRetryDirective

	// response is the response the directive was issued against; retained
	// for status-based delay hints after its body has been released.
	response *http.Response
}

// ForceRetry builds the error an afterResponse hook returns to request
// another attempt regardless of status code.
func ForceRetry(d ForcedRetryDirective) *ForcedRetryError {
	return &ForcedRetryError{Directive: d}
}

// Error implements error interface.
func (e *ForcedRetryError) Error() string {
	var b strings.Builder
	b.WriteString("kirimgo: retry forced by afterResponse hook")
	if e.Directive.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Directive.Code)
	}
	if e.Directive.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Directive.Cause)
	}
	return b.String()
}

// Unwrap returns the directive's cause.
func (e *ForcedRetryError) Unwrap() error { return e.Directive.Cause }

// PanicError wraps a non-error panic value recovered from a hook so the rest
// of the pipeline always observes a proper error. The original value is
// preserved for inspection.
type PanicError struct {
	Value any
}

// Error implements error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("kirimgo: hook panicked with non-error value: %v", e.Value)
}

// ConfigError reports construction-time validation failures. It is returned
// by ValidationError and by every request method on a misconfigured client.
type ConfigError struct {
	Problems []string
}

// Error implements error interface.
func (e *ConfigError) Error() string {
	return "kirimgo: invalid configuration: " + strings.Join(e.Problems, "; ")
}

// IsTransient reports whether an error represents a failure that might
// succeed on retry: transport errors, timeouts, forced retries and 5xx or
// 429 responses. Local policy rejections and other 4xx responses are not
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var forced *ForcedRetryError
	if errors.As(err, &forced) {
		return true
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return false
	}
	// Anything else came from the transport and is assumed transient.
	return true
}
