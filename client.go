package kirimgo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	internalbackoff "github.com/ambiyansyah-risyal/kirimgo/internal/backoff"
)

// Client is a resilient HTTP client that layers a retry/backoff engine, a
// four-stage hook pipeline, progress instrumentation, circuit breaking,
// rate limiting, de-duplication, middleware and metrics around the standard
// net/http Client. It is safe for concurrent use; each exchange owns its
// own attempt counter, cancellation scope and options snapshot.
type Client struct {
	httpClient      *http.Client
	timeout         time.Duration
	retry           RetryConfig
	backoff         *internalbackoff.Calculator
	backoffStrategy BackoffStrategy
	throwHTTPErrors bool

	hooks      Hooks
	middleware []Middleware

	onUploadProgress   ProgressFunc
	onDownloadProgress ProgressFunc

	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter
	dedup          *deduplicator
	dedupKeyFunc   DeduplicationKeyFunc
	dedupCondition DeduplicationCondition

	metrics *MetricsCollector
	logger  Logger
	debug   *DebugConfig

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:      &http.Client{},
		timeout:         30 * time.Second,
		retry:           DefaultRetryConfig(),
		backoff:         internalbackoff.NewCalculator(internalbackoff.Exponential{}),
		backoffStrategy: ExponentialBackoff,
		throwHTTPErrors: true,
		dedupKeyFunc:    DefaultDeduplicationKeyFunc,
		dedupCondition:  DefaultDeduplicationCondition,
		debug:           DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get performs an HTTP GET with context.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.bodyless(ctx, http.MethodGet, url)
}

// Head performs an HTTP HEAD with context.
func (c *Client) Head(ctx context.Context, url string) (*Response, error) {
	return c.bodyless(ctx, http.MethodHead, url)
}

// Delete performs an HTTP DELETE with context.
func (c *Client) Delete(ctx context.Context, url string) (*Response, error) {
	return c.bodyless(ctx, http.MethodDelete, url)
}

// Post performs an HTTP POST with the given content type.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*Response, error) {
	return c.withBody(ctx, http.MethodPost, url, contentType, body)
}

// Put performs an HTTP PUT with the given content type.
func (c *Client) Put(ctx context.Context, url, contentType string, body io.Reader) (*Response, error) {
	return c.withBody(ctx, http.MethodPut, url, contentType, body)
}

// Patch performs an HTTP PATCH with the given content type.
func (c *Client) Patch(ctx context.Context, url, contentType string, body io.Reader) (*Response, error) {
	return c.withBody(ctx, http.MethodPatch, url, contentType, body)
}

func (c *Client) bodyless(ctx context.Context, method, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *Client) withBody(ctx context.Context, method, url, contentType string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// Do executes a prepared *http.Request applying the full exchange
// lifecycle: hooks, retries with backoff, progress instrumentation and the
// reliability layers. A nil, nil return means a beforeRetry hook stopped
// the exchange without producing a result.
func (c *Client) Do(req *http.Request) (*Response, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	if c.dedupEligible(req) {
		key := c.dedupKeyFunc(req)
		resp, err, shared := c.dedup.do(key, func() (*Response, error) {
			return c.exchange(req)
		})
		if shared {
			endpoint := endpointFromRequest(req)
			c.metrics.RecordDeduplicationHit(req.Method, endpoint)
			if c.debug != nil && c.debug.Enabled && c.logger != nil {
				c.logger.Debug("Coalesced onto in-flight duplicate", "method", req.Method, "endpoint", endpoint)
			}
		}
		return resp, err
	}

	return c.exchange(req)
}

// exchange runs one logical request-to-response interaction, potentially
// spanning multiple transport attempts.
func (c *Client) exchange(req *http.Request) (*Response, error) {
	start := time.Now()
	endpoint := endpointFromRequest(req)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting exchange", "requestID", requestID, "method", req.Method, "url", req.URL.String())
	}

	c.metrics.RecordRequestStart(req.Method, endpoint)
	defer c.metrics.RecordRequestEnd(req.Method, endpoint)

	// One timeout budget covers the whole exchange: every attempt, hook
	// invocation and retry delay. The caller's context is merged in so
	// either source can abort the in-flight transport call.
	ctx := req.Context()
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeoutCause(ctx, c.timeout, &TimeoutError{Request: req, Limit: c.timeout})
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	req = req.WithContext(ctx)

	resp, err := c.run(ctx, req, requestID)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	c.metrics.RecordRequest(req.Method, endpoint, statusCode, time.Since(start))

	if err != nil || resp == nil {
		// Buffer a surfaced error response before tearing down the
		// exchange scope so callers can still inspect its body.
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			bufferResponseBody(httpErr.Response)
		}
		cancel()
		return nil, err
	}

	// The budget keeps ticking while the caller consumes the body; cancel
	// only once the stream is finished, or the transport would tear it
	// down immediately.
	resp.Body = &cancelOnCloseReader{rc: resp.Body, cancel: cancel}
	return resp, nil
}

// run drives the retry loop. The current request is a loop-local binding
// threaded through each attempt; hooks replace it by returning a new
// request rather than mutating shared state.
func (c *Client) run(ctx context.Context, req *http.Request, requestID string) (*Response, error) {
	endpoint := endpointFromRequest(req)
	state := &HookState{}
	current := req

	for retryCount := 0; ; retryCount++ {
		state.RetryCount = retryCount

		resp, active, err := c.attempt(ctx, current, state)
		current = active
		if err == nil {
			return newResponse(resp), nil
		}
		err = c.classify(ctx, err)

		verdict := c.decideRetry(err, current.Method, retryCount+1)
		if !verdict.retry {
			return nil, c.finishError(err, state, current.Method, endpoint)
		}

		// The failed attempt's response is superseded; release it
		// before the next attempt.
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			releaseResponse(httpErr.Response)
		}

		next := current
		if verdict.request != nil {
			next = verdict.request
		}

		state.RetryCount = retryCount + 1
		event := &RetryEvent{
			Request:    next,
			Options:    c.snapshotOptions(next),
			Error:      err,
			RetryCount: retryCount + 1,
		}
		action, hookErr := c.runBeforeRetry(ctx, event)
		if hookErr != nil {
			return nil, c.finishError(hookErr, state, current.Method, endpoint)
		}
		if action != nil {
			switch action.kind {
			case actionStop:
				return nil, nil
			case actionResponse:
				return newResponse(action.response), nil
			case actionRequest:
				next = action.request
			}
		}

		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("Scheduling retry", "requestID", requestID,
				"attempt", retryCount+1, "limit", c.retry.Limit,
				"delay", verdict.delay, "endpoint", endpoint)
		}
		c.metrics.RecordRetry(next.Method, endpoint, retryReason(err))

		if serr := sleep(ctx, verdict.delay); serr != nil {
			return nil, c.finishError(c.classify(ctx, serr), state, next.Method, endpoint)
		}
		current = next
	}
}

// attempt performs a single transport dispatch wrapped by the hook pipeline
// and progress instrumentation. It returns the request that ended up
// active, so replacements made by hooks persist into later attempts.
func (c *Client) attempt(ctx context.Context, req *http.Request, state *HookState) (*http.Response, *http.Request, error) {
	endpoint := endpointFromRequest(req)

	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
			c.logger.Warn("Rate limit exceeded", "endpoint", endpoint)
		}
		c.metrics.RecordRateLimited(req.Method, endpoint)
		return nil, req, ErrRateLimited
	}
	if c.circuitBreaker != nil {
		if !c.circuitBreaker.Allow() {
			if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
				c.logger.Warn("Circuit breaker open", "endpoint", endpoint)
			}
			c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.State())
			return nil, req, ErrCircuitOpen
		}
	}

	opts := c.snapshotOptions(req)

	var hookResp *http.Response
	action, err := c.runBeforeRequest(ctx, req, opts, state)
	if err != nil {
		return nil, req, err
	}
	if action != nil {
		switch action.kind {
		case actionRequest:
			req = action.request
			opts = c.snapshotOptions(req)
		case actionResponse:
			hookResp = action.response
		}
	}

	// The budget may have expired while hooks ran; never dispatch after
	// expiry.
	if ctx.Err() != nil {
		return nil, req, context.Cause(ctx)
	}

	resp := hookResp
	if resp == nil {
		dispatchReq, err := c.prepareDispatch(ctx, req, state)
		if err != nil {
			return nil, req, err
		}
		resp, err = c.transport(dispatchReq)
		if c.circuitBreaker != nil {
			if err != nil || resp.StatusCode >= 500 {
				c.circuitBreaker.RecordFailure()
			} else {
				c.circuitBreaker.RecordSuccess()
			}
			c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.State())
		}
		if err != nil {
			return nil, req, err
		}
	}

	resp, err = c.runAfterResponse(ctx, req, opts, resp, state)
	if err != nil {
		return nil, req, err
	}
	if ctx.Err() != nil {
		releaseResponse(resp)
		return nil, req, context.Cause(ctx)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if opts.ThrowHTTPErrors {
			return nil, req, newHTTPError(req, resp)
		}
		// Error throwing disabled: the response is terminal, retries
		// do not apply.
	}

	if c.onDownloadProgress != nil && resp.Body != nil {
		total := resp.ContentLength
		if total < 0 {
			total = 0
		}
		resp.Body = newProgressReader(resp.Body, total, c.instrumentProgress(c.onDownloadProgress, "download"))
	}
	return resp, req, nil
}

// prepareDispatch readies the outgoing request for one transport call:
// rewinds the body on retries via GetBody and wraps it for upload progress.
// The input request is never mutated; a shallow copy carries the new body.
func (c *Client) prepareDispatch(ctx context.Context, req *http.Request, state *HookState) (*http.Request, error) {
	out := req
	if state.RetryCount > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out = shallowCopy(req)
		out.Body = body
	}
	if c.onUploadProgress != nil && out.Body != nil && out.Body != http.NoBody {
		// The estimator runs against the body actually being sent, so
		// replacements made by hooks are accounted for.
		total := RequestBodySize(out)
		if total < 0 {
			total = 0
		}
		wrapped := shallowCopy(out)
		wrapped.Body = newProgressReader(out.Body, total, c.instrumentProgress(c.onUploadProgress, "upload"))
		out = wrapped
	}
	return out.WithContext(ctx), nil
}

// transport runs the middleware chain ending in the HTTP client.
func (c *Client) transport(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}
	return current.RoundTrip(req)
}

// classify maps context expiry at any suspension point onto the typed
// timeout error carried as the context cause. Transport errors pass
// through unchanged.
func (c *Client) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if cause := context.Cause(ctx); cause != nil && errors.As(cause, &timeoutErr) {
			return timeoutErr
		}
	}
	return err
}

// finishError runs the beforeError hooks over an error about to surface
// and records it.
func (c *Client) finishError(err error, state *HookState, method, endpoint string) error {
	err = c.runBeforeError(err, state)
	if c.metrics != nil {
		errType := errorType(err)
		if errType == "timeout" {
			c.metrics.RecordTimeout(method, endpoint)
		}
		c.metrics.RecordError(errType, method, endpoint)
	}
	if c.debug != nil && c.debug.Enabled && c.logger != nil {
		c.logger.Error("Exchange failed", "method", method, "endpoint", endpoint, "error", err)
	}
	return err
}

// snapshotOptions builds the read-only configuration view handed to hooks.
// The header map is the live one of the given request.
func (c *Client) snapshotOptions(req *http.Request) *Options {
	return &Options{
		Method:          req.Method,
		URL:             req.URL,
		Header:          req.Header,
		Retry:           c.retry,
		Timeout:         c.timeout,
		ThrowHTTPErrors: c.throwHTTPErrors,
	}
}

// instrumentProgress tees progress samples into the transfer-volume
// counter before handing them to the user callback.
func (c *Client) instrumentProgress(fn ProgressFunc, direction string) ProgressFunc {
	if c.metrics == nil {
		return fn
	}
	var last int64
	return func(p Progress) {
		c.metrics.AddTransferredBytes(direction, p.TransferredBytes-last)
		last = p.TransferredBytes
		fn(p)
	}
}

func retryReason(err error) string {
	var forced *ForcedRetryError
	if errors.As(err, &forced) {
		return "forced"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return "status"
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return "timeout"
	}
	return "transport"
}

func errorType(err error) string {
	var timeoutErr *TimeoutError
	var httpErr *HTTPError
	var forced *ForcedRetryError
	var panicErr *PanicError
	switch {
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &httpErr):
		return "http_status"
	case errors.As(err, &forced):
		return "forced_retry"
	case errors.As(err, &panicErr):
		return "panic"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	default:
		return "transport"
	}
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func shallowCopy(req *http.Request) *http.Request {
	out := new(http.Request)
	*out = *req
	return out
}

// cancelOnCloseReader releases the exchange's cancellation scope once the
// response body is fully consumed or closed.
type cancelOnCloseReader struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (r *cancelOnCloseReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil {
		r.once.Do(r.cancel)
	}
	return n, err
}

func (r *cancelOnCloseReader) Close() error {
	err := r.rc.Close()
	r.once.Do(r.cancel)
	return err
}

func endpointFromRequest(req *http.Request) string {
	if req.URL == nil {
		return "unknown"
	}

	host := req.URL.Host
	path := req.URL.Path

	var builder strings.Builder
	builder.WriteString(host)
	if path != "" && path != "/" {
		builder.WriteString(path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}
