package kirimgo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWithTimeout(t *testing.T) {
	client := New(WithTimeout(5 * time.Second))

	if client.timeout != 5*time.Second {
		t.Errorf("Expected timeout=5s, got %v", client.timeout)
	}
}

func TestWithRetryLimit(t *testing.T) {
	client := New(WithRetryLimit(5))

	if client.retry.Limit != 5 {
		t.Errorf("Expected retry limit=5, got %d", client.retry.Limit)
	}
}

func TestWithRetryReplacesPolicy(t *testing.T) {
	cfg := RetryConfig{
		Limit:       7,
		Methods:     []string{http.MethodGet},
		StatusCodes: []int{503},
	}
	client := New(WithRetry(cfg))

	if client.retry.Limit != 7 {
		t.Errorf("Expected limit=7, got %d", client.retry.Limit)
	}
	if len(client.retry.Methods) != 1 || client.retry.Methods[0] != http.MethodGet {
		t.Errorf("Methods = %v", client.retry.Methods)
	}
}

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{}
	client := New(WithHTTPClient(custom))

	if client.httpClient != custom {
		t.Error("Expected the custom HTTP client to be used")
	}
}

func TestWithThrowHTTPErrors(t *testing.T) {
	client := New(WithThrowHTTPErrors(false))

	if client.throwHTTPErrors {
		t.Error("Expected HTTP error throwing disabled")
	}
}

func TestWithBackoffStrategy(t *testing.T) {
	client := New(WithBackoffStrategy(DecorrelatedBackoff))

	if client.backoffStrategy != DecorrelatedBackoff {
		t.Errorf("Expected DecorrelatedBackoff, got %v", client.backoffStrategy)
	}
	if client.backoff == nil {
		t.Error("Expected the calculator to be swapped")
	}
}

func TestWithHookAppenders(t *testing.T) {
	client := New(
		WithBeforeRequest(func(ctx context.Context, req *http.Request, opts *Options, state *HookState) (*HookAction, error) {
			return nil, nil
		}),
		WithBeforeRetry(func(ctx context.Context, event *RetryEvent) (*HookAction, error) {
			return nil, nil
		}),
		WithAfterResponse(func(ctx context.Context, req *http.Request, opts *Options, resp *http.Response, state *HookState) (*http.Response, error) {
			return nil, nil
		}),
		WithBeforeError(func(err error, state *HookState) error {
			return err
		}),
	)

	if len(client.hooks.BeforeRequest) != 1 {
		t.Errorf("BeforeRequest hooks = %d, want 1", len(client.hooks.BeforeRequest))
	}
	if len(client.hooks.BeforeRetry) != 1 {
		t.Errorf("BeforeRetry hooks = %d, want 1", len(client.hooks.BeforeRetry))
	}
	if len(client.hooks.AfterResponse) != 1 {
		t.Errorf("AfterResponse hooks = %d, want 1", len(client.hooks.AfterResponse))
	}
	if len(client.hooks.BeforeError) != 1 {
		t.Errorf("BeforeError hooks = %d, want 1", len(client.hooks.BeforeError))
	}
}

func TestWithCircuitBreaker(t *testing.T) {
	client := New(WithCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3}))

	if client.circuitBreaker == nil {
		t.Fatal("Expected circuit breaker to be enabled")
	}
	if client.circuitBreaker.config.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %d, want 3", client.circuitBreaker.config.FailureThreshold)
	}
}

func TestWithDeduplicationOptions(t *testing.T) {
	keyFunc := func(req *http.Request) string { return "constant" }
	condition := func(req *http.Request) bool { return true }

	client := New(
		WithDeduplication(),
		WithDeduplicationKeyFunc(keyFunc),
		WithDeduplicationCondition(condition),
	)

	if client.dedup == nil {
		t.Fatal("Expected deduplication to be enabled")
	}
	req, _ := http.NewRequest(http.MethodPost, "http://example.com/", nil)
	if client.dedupKeyFunc(req) != "constant" {
		t.Error("Expected the custom key function")
	}
	if !client.dedupCondition(req) {
		t.Error("Expected the custom condition")
	}
}

func TestWithMetricsCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	mc := NewMetricsCollectorWithRegistry(registry)
	client := New(WithMetricsCollector(mc))

	if client.metrics != mc {
		t.Error("Expected the supplied collector to be used")
	}
}

func TestWithDebugRequiresLogger(t *testing.T) {
	client := New(WithDebug())

	if client.IsValid() {
		t.Error("Expected debug without a logger to fail validation")
	}
}

func TestWithSimpleLoggerEnablesDebug(t *testing.T) {
	client := New(WithSimpleLogger())

	if client.debug == nil || !client.debug.Enabled {
		t.Error("Expected debug enabled")
	}
	if client.logger == nil {
		t.Error("Expected a logger to be set")
	}
	if !client.IsValid() {
		t.Errorf("Expected valid configuration: %v", client.ValidationError())
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	client := New(WithRequestIDGenerator(func() string { return "fixed-id" }))

	if client.debug == nil || client.debug.RequestIDGen == nil {
		t.Fatal("Expected a request ID generator")
	}
	if got := client.debug.RequestIDGen(); got != "fixed-id" {
		t.Errorf("RequestIDGen() = %q, want fixed-id", got)
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		valid   bool
	}{
		{"defaults", nil, true},
		{"negative retry limit", []Option{WithRetryLimit(-1)}, false},
		{"excessive retry limit", []Option{WithRetryLimit(101)}, false},
		{"negative timeout", []Option{WithTimeout(-time.Second)}, false},
		{"oversized timeout", []Option{WithTimeout(maxSafeTimeout + time.Millisecond)}, false},
		{"nil http client", []Option{WithHTTPClient(nil)}, false},
		{"nil middleware", []Option{WithMiddleware(nil)}, false},
		{"nil beforeRequest hook", []Option{WithBeforeRequest(nil)}, false},
		{"nil beforeRetry hook", []Option{WithBeforeRetry(nil)}, false},
		{"nil afterResponse hook", []Option{WithAfterResponse(nil)}, false},
		{"nil beforeError hook", []Option{WithBeforeError(nil)}, false},
		{
			"status code out of range",
			[]Option{WithRetry(RetryConfig{Methods: []string{"GET"}, StatusCodes: []int{777}})},
			false,
		},
		{
			"after-status code out of range",
			[]Option{WithRetry(RetryConfig{Methods: []string{"GET"}, AfterStatusCodes: []int{42}})},
			false,
		},
		{
			"empty retry method",
			[]Option{WithRetry(RetryConfig{Methods: []string{""}})},
			false,
		},
		{
			"negative maxRetryAfter",
			[]Option{WithRetry(RetryConfig{Methods: []string{"GET"}, MaxRetryAfter: -time.Second})},
			false,
		},
		{
			"negative backoffLimit",
			[]Option{WithRetry(RetryConfig{Methods: []string{"GET"}, BackoffLimit: -time.Second})},
			false,
		},
		{
			"dedup without key func",
			[]Option{WithDeduplication(), WithDeduplicationKeyFunc(nil)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.options...)
			if got := client.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v (error: %v)", got, tt.valid, client.ValidationError())
			}
		})
	}
}
