// Package kirimgo turns a single HTTP exchange into a resilient, observable
// request on top of the standard net/http transport:
//
//   - Retries with exponential or decorrelated backoff, jitter, and exact
//     honoring of server-supplied Retry-After / rate-limit reset headers
//   - A four-stage hook pipeline (beforeRequest, beforeRetry,
//     afterResponse, beforeError), each stage able to short-circuit or
//     redirect control flow
//   - Forced retries driven by response content: an afterResponse hook can
//     demand another attempt regardless of status via ForceRetry
//   - Upload and download progress instrumentation with monotonic samples
//   - One timeout budget covering the entire multi-attempt exchange
//   - Circuit breaker, client-side rate limiting and request
//     de-duplication of concurrent identical requests
//   - Prometheus metrics and structured debug logging via zerolog
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Safe concurrent use of a single *Client instance; every exchange
//     owns its own attempt counter and cancellation scope
//   - Extensibility via hooks and middleware instead of subclass points
//
// Typical usage:
//
//	client := kirimgo.New(
//	    kirimgo.WithRetryLimit(3),
//	    kirimgo.WithTimeout(10*time.Second),
//	    kirimgo.WithBeforeRequest(func(ctx context.Context, req *http.Request, opts *kirimgo.Options, state *kirimgo.HookState) (*kirimgo.HookAction, error) {
//	        if state.RetryCount == 0 {
//	            req.Header.Set("X-First-Try", "1")
//	        }
//	        return nil, nil
//	    }),
//	)
//	resp, err := client.Get(ctx, "https://api.example.com/data")
//	if err != nil {
//	    return err
//	}
//	var data Payload
//	if err := resp.JSON(&data); err != nil {
//	    return err
//	}
//
// Connection pooling, DNS/TLS behavior and HTTP/2 tuning are delegated to
// the underlying *http.Client; configure them there.
package kirimgo
