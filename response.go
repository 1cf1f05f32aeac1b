package kirimgo

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// Response wraps the final *http.Response of an exchange with deferred body
// shortcuts. Header and body work happens only when an accessor is invoked;
// the body is read once and cached, so the shortcuts may be called multiple
// times and from multiple goroutines.
type Response struct {
	*http.Response

	mu      sync.Mutex
	body    []byte
	bodyErr error
	read    bool
}

func newResponse(resp *http.Response) *Response {
	return &Response{Response: resp}
}

// OK reports whether the status code is in the 2xx range. Useful when HTTP
// error throwing is disabled and non-2xx responses are returned directly.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Bytes reads, closes and caches the response body.
func (r *Response) Bytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.read {
		r.read = true
		r.body, r.bodyErr = io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(r.body))
	}
	return r.body, r.bodyErr
}

// Text returns the body as a string.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// clone returns an independent view over the already-buffered body. The
// caller must have invoked Bytes first.
func (r *Response) clone() *Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	shallow := *r.Response
	shallow.Body = io.NopCloser(bytes.NewReader(r.body))
	return &Response{
		Response: &shallow,
		body:     r.body,
		bodyErr:  r.bodyErr,
		read:     true,
	}
}

// errorBodyLimit caps how much of an error response body is kept for
// caller inspection.
const errorBodyLimit = 1 << 20

// bufferResponseBody replaces resp.Body with an in-memory copy so it stays
// readable after the exchange's cancellation scope is released.
func bufferResponseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
}

// releaseBodyLimit caps how much of an abandoned body is drained before
// closing, enough to let the transport reuse the connection.
const releaseBodyLimit = 64 * 1024

// releaseResponse drains and closes the body of a superseded response.
// Best effort: failures releasing an already-finished stream are swallowed.
func releaseResponse(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, releaseBodyLimit))
	_ = resp.Body.Close()
}
