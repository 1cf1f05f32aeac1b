package kirimgo

import (
	"context"
	"errors"
	"net/http"
)

// HookState exposes the attempt counter to hook callbacks. RetryCount is 0
// for the initial attempt and >= 1 for retries, so a hook can behave
// differently on the first try (e.g. only then set a default header).
type HookState struct {
	RetryCount int
}

// hookActionKind tags the variants a beforeRequest or beforeRetry hook may
// return. Modeled as an explicit union so the orchestrator pattern-matches
// on the kind instead of sniffing runtime types.
type hookActionKind int

const (
	actionContinue hookActionKind = iota
	actionRequest
	actionResponse
	actionStop
)

// HookAction is the tagged result of a beforeRequest or beforeRetry hook.
// A nil *HookAction means "continue with the next hook".
type HookAction struct {
	kind     hookActionKind
	request  *http.Request
	response *http.Response
}

// UseRequest makes the given request the active one. Remaining hooks in the
// same stage are skipped; for beforeRetry the request becomes the next
// attempt's basis.
func UseRequest(req *http.Request) *HookAction {
	return &HookAction{kind: actionRequest, request: req}
}

// UseResponse short-circuits with the given response. For beforeRequest the
// transport call is skipped entirely; for beforeRetry the retry is skipped
// and the response becomes the final result.
func UseResponse(resp *http.Response) *HookAction {
	return &HookAction{kind: actionResponse, response: resp}
}

// StopRetry aborts retrying without producing an error; the exchange then
// yields neither response nor error. Only meaningful from beforeRetry hooks.
var StopRetry = &HookAction{kind: actionStop}

// BeforeRequestHook runs before each attempt is dispatched.
type BeforeRequestHook func(ctx context.Context, req *http.Request, opts *Options, state *HookState) (*HookAction, error)

// RetryEvent carries the failure context handed to beforeRetry hooks.
type RetryEvent struct {
	Request    *http.Request
	Options    *Options
	Error      error
	RetryCount int
}

// BeforeRetryHook runs after a retry has been decided and before its delay
// is awaited. Returning an error aborts retrying and propagates it as-is
// (after beforeError hooks).
type BeforeRetryHook func(ctx context.Context, event *RetryEvent) (*HookAction, error)

// AfterResponseHook runs over every response before the status is judged.
// It may return a replacement response, or a *ForcedRetryError (via
// ForceRetry) to request another attempt regardless of status code.
// Returning nil, nil keeps the current response.
type AfterResponseHook func(ctx context.Context, req *http.Request, opts *Options, resp *http.Response, state *HookState) (*http.Response, error)

// BeforeErrorHook runs over an error about to surface to the caller and
// must return an error (the same or a replacement).
type BeforeErrorHook func(err error, state *HookState) error

// Hooks are the four lifecycle extension points. Hooks within a stage run
// strictly in order, one at a time; ordering is a correctness requirement,
// not an optimization.
type Hooks struct {
	BeforeRequest []BeforeRequestHook
	BeforeRetry   []BeforeRetryHook
	AfterResponse []AfterResponseHook
	BeforeError   []BeforeErrorHook
}

// recoverHookPanic converts a panicking hook into an error result. Panics
// carrying an error propagate that error; any other value is wrapped in a
// PanicError so downstream hooks always observe a proper error.
func recoverHookPanic(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = e
			return
		}
		*err = &PanicError{Value: r}
	}
}

func (c *Client) runBeforeRequest(ctx context.Context, req *http.Request, opts *Options, state *HookState) (*HookAction, error) {
	for i, hook := range c.hooks.BeforeRequest {
		action, err := invokeBeforeRequest(hook, ctx, req, opts, state)
		if err != nil {
			return nil, err
		}
		if action == nil || action.kind == actionContinue {
			continue
		}
		c.logHook("beforeRequest", i, state.RetryCount)
		return action, nil
	}
	return nil, nil
}

func invokeBeforeRequest(hook BeforeRequestHook, ctx context.Context, req *http.Request, opts *Options, state *HookState) (action *HookAction, err error) {
	defer recoverHookPanic(&err)
	return hook(ctx, req, opts, state)
}

func (c *Client) runBeforeRetry(ctx context.Context, event *RetryEvent) (*HookAction, error) {
	for i, hook := range c.hooks.BeforeRetry {
		action, err := invokeBeforeRetry(hook, ctx, event)
		if err != nil {
			return nil, err
		}
		if action == nil || action.kind == actionContinue {
			continue
		}
		if action.kind == actionRequest {
			event.Request = action.request
		}
		c.logHook("beforeRetry", i, event.RetryCount)
		return action, nil
	}
	return nil, nil
}

func invokeBeforeRetry(hook BeforeRetryHook, ctx context.Context, event *RetryEvent) (action *HookAction, err error) {
	defer recoverHookPanic(&err)
	return hook(ctx, event)
}

// runAfterResponse threads the response through every afterResponse hook.
// A replacement response supersedes the previous one, whose body is
// released. If a hook fails, the current response's body is released before
// the error propagates.
func (c *Client) runAfterResponse(ctx context.Context, req *http.Request, opts *Options, resp *http.Response, state *HookState) (*http.Response, error) {
	for i, hook := range c.hooks.AfterResponse {
		next, err := invokeAfterResponse(hook, ctx, req, opts, resp, state)
		if err != nil {
			var forced *ForcedRetryError
			if errors.As(err, &forced) {
				forced.response = resp
			}
			releaseResponse(resp)
			return nil, err
		}
		if next != nil && next != resp {
			releaseResponse(resp)
			resp = next
			c.logHook("afterResponse", i, state.RetryCount)
		}
	}
	return resp, nil
}

func invokeAfterResponse(hook AfterResponseHook, ctx context.Context, req *http.Request, opts *Options, resp *http.Response, state *HookState) (next *http.Response, err error) {
	defer recoverHookPanic(&err)
	return hook(ctx, req, opts, resp, state)
}

// runBeforeError filters an error about to surface. A hook returning nil
// keeps the current error.
func (c *Client) runBeforeError(err error, state *HookState) error {
	for _, hook := range c.hooks.BeforeError {
		replaced := invokeBeforeError(hook, err, state)
		if replaced != nil {
			err = replaced
		}
	}
	return err
}

func invokeBeforeError(hook BeforeErrorHook, in error, state *HookState) (out error) {
	defer recoverHookPanic(&out)
	return hook(in, state)
}

func (c *Client) logHook(stage string, index, retryCount int) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogHooks && c.logger != nil {
		c.logger.Debug("Hook short-circuited", "stage", stage, "hook", index, "retryCount", retryCount)
	}
}
