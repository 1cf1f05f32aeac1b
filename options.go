package kirimgo

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	internalbackoff "github.com/ambiyansyah-risyal/kirimgo/internal/backoff"
)

// WithHTTPClient sets a custom HTTP client used for transport dispatch.
// Leave its Timeout zero; the exchange budget is enforced by WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the total exchange budget covering every attempt, hook
// invocation and retry delay. Zero disables the budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetry replaces the whole retry policy.
func WithRetry(config RetryConfig) Option {
	return func(c *Client) {
		c.retry = config
	}
}

// WithRetryLimit sets the maximum number of retries (limit+1 total
// attempts).
func WithRetryLimit(n int) Option {
	return func(c *Client) {
		c.retry.Limit = n
	}
}

// WithBackoffStrategy selects the base-delay algorithm for computed
// backoff delays.
func WithBackoffStrategy(strategy BackoffStrategy) Option {
	return func(c *Client) {
		c.backoffStrategy = strategy
		switch strategy {
		case DecorrelatedBackoff:
			c.backoff = internalbackoff.NewCalculator(internalbackoff.Decorrelated{})
		default:
			c.backoff = internalbackoff.NewCalculator(internalbackoff.Exponential{})
		}
	}
}

// WithThrowHTTPErrors controls whether non-2xx responses surface as
// *HTTPError. When disabled, non-2xx responses are returned directly and
// are never retried; timeouts still surface as errors.
func WithThrowHTTPErrors(enabled bool) Option {
	return func(c *Client) {
		c.throwHTTPErrors = enabled
	}
}

// WithHooks replaces all four hook stages at once.
func WithHooks(hooks Hooks) Option {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// WithBeforeRequest appends beforeRequest hooks.
func WithBeforeRequest(hooks ...BeforeRequestHook) Option {
	return func(c *Client) {
		c.hooks.BeforeRequest = append(c.hooks.BeforeRequest, hooks...)
	}
}

// WithBeforeRetry appends beforeRetry hooks.
func WithBeforeRetry(hooks ...BeforeRetryHook) Option {
	return func(c *Client) {
		c.hooks.BeforeRetry = append(c.hooks.BeforeRetry, hooks...)
	}
}

// WithAfterResponse appends afterResponse hooks.
func WithAfterResponse(hooks ...AfterResponseHook) Option {
	return func(c *Client) {
		c.hooks.AfterResponse = append(c.hooks.AfterResponse, hooks...)
	}
}

// WithBeforeError appends beforeError hooks.
func WithBeforeError(hooks ...BeforeErrorHook) Option {
	return func(c *Client) {
		c.hooks.BeforeError = append(c.hooks.BeforeError, hooks...)
	}
}

// WithMiddleware adds transport middleware to the client.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithUploadProgress registers a callback receiving upload progress
// samples for every attempt.
func WithUploadProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.onUploadProgress = fn
	}
}

// WithDownloadProgress registers a callback receiving download progress
// samples as the caller consumes the response body.
func WithDownloadProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.onDownloadProgress = fn
	}
}

// WithCircuitBreaker enables circuit breaking with the given configuration.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithRateLimiter enables client-side rate limiting.
func WithRateLimiter(rps float64, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(rps, burst)
	}
}

// WithDeduplication coalesces concurrent identical in-flight requests.
// Coalesced responses are fully buffered in memory.
func WithDeduplication() Option {
	return func(c *Client) {
		c.dedup = &deduplicator{}
	}
}

// WithDeduplicationKeyFunc sets a custom coalescing key function.
func WithDeduplicationKeyFunc(fn DeduplicationKeyFunc) Option {
	return func(c *Client) {
		c.dedupKeyFunc = fn
	}
}

// WithDeduplicationCondition sets a custom coalescing condition.
func WithDeduplicationCondition(fn DeduplicationCondition) Option {
	return func(c *Client) {
		c.dedupCondition = fn
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithZerolog routes debug output to a zerolog.Logger.
func WithZerolog(zl zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = NewZerologLogger(zl)
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateTimeouts()...)
	problems = append(problems, c.validateHooks()...)
	problems = append(problems, c.validateInfra()...)

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	r := &c.retry
	if r.Limit < 0 {
		problems = append(problems, "retry limit must be non-negative")
	}
	if r.Limit > 100 {
		problems = append(problems, "retry limit > 100 may cause excessive resource usage")
	}
	for _, code := range r.StatusCodes {
		if code < 100 || code > 599 {
			problems = append(problems, fmt.Sprintf("retry status code %d out of range", code))
		}
	}
	for _, code := range r.AfterStatusCodes {
		if code < 100 || code > 599 {
			problems = append(problems, fmt.Sprintf("retry after-status code %d out of range", code))
		}
	}
	for _, method := range r.Methods {
		if method == "" {
			problems = append(problems, "retry methods must not contain empty entries")
		}
	}
	if r.MaxRetryAfter < 0 {
		problems = append(problems, "maxRetryAfter must be non-negative")
	}
	if r.BackoffLimit < 0 {
		problems = append(problems, "backoffLimit must be non-negative")
	}
	return problems
}

func (c *Client) validateTimeouts() []string {
	var problems []string

	if c.timeout < 0 {
		problems = append(problems, "timeout must be non-negative")
	}
	// Values beyond the safe timer ceiling are rejected rather than
	// silently clamped.
	if c.timeout > maxSafeTimeout {
		problems = append(problems, "timeout exceeds the maximum safe timer duration")
	}
	if c.retry.MaxRetryAfter > maxSafeTimeout {
		problems = append(problems, "maxRetryAfter exceeds the maximum safe timer duration")
	}
	if c.retry.BackoffLimit > maxSafeTimeout {
		problems = append(problems, "backoffLimit exceeds the maximum safe timer duration")
	}
	return problems
}

func (c *Client) validateHooks() []string {
	var problems []string

	for i, hook := range c.hooks.BeforeRequest {
		if hook == nil {
			problems = append(problems, fmt.Sprintf("beforeRequest[%d] cannot be nil", i))
		}
	}
	for i, hook := range c.hooks.BeforeRetry {
		if hook == nil {
			problems = append(problems, fmt.Sprintf("beforeRetry[%d] cannot be nil", i))
		}
	}
	for i, hook := range c.hooks.AfterResponse {
		if hook == nil {
			problems = append(problems, fmt.Sprintf("afterResponse[%d] cannot be nil", i))
		}
	}
	for i, hook := range c.hooks.BeforeError {
		if hook == nil {
			problems = append(problems, fmt.Sprintf("beforeError[%d] cannot be nil", i))
		}
	}
	return problems
}

func (c *Client) validateInfra() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	for i, middleware := range c.middleware {
		if middleware == nil {
			problems = append(problems, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}
	if c.dedup != nil {
		if c.dedupKeyFunc == nil {
			problems = append(problems, "deduplication key function must be set when deduplication is enabled")
		}
		if c.dedupCondition == nil {
			problems = append(problems, "deduplication condition must be set when deduplication is enabled")
		}
	}
	if c.debug != nil && c.debug.Enabled && c.logger == nil {
		problems = append(problems, "logger must be set when debug is enabled")
	}
	return problems
}
