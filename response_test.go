package kirimgo

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

func newBodyResponse(status int, body string) *Response {
	return newResponse(&http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	})
}

func TestResponseOK(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{199, false},
		{300, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		resp := newBodyResponse(tt.status, "")
		if got := resp.OK(); got != tt.want {
			t.Errorf("OK() for %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestResponseBytesCaches(t *testing.T) {
	resp := newBodyResponse(200, "hello")

	first, err := resp.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error: %v", err)
	}
	second, err := resp.Bytes()
	if err != nil {
		t.Fatalf("second Bytes() error: %v", err)
	}
	if string(first) != "hello" || string(second) != "hello" {
		t.Errorf("Bytes() = %q then %q, want hello both times", first, second)
	}

	// The raw body remains readable after caching.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading raw body: %v", err)
	}
	if string(raw) != "hello" {
		t.Errorf("raw body = %q, want hello", raw)
	}
}

func TestResponseText(t *testing.T) {
	resp := newBodyResponse(200, "plain text")
	text, err := resp.Text()
	if err != nil {
		t.Fatalf("Text() error: %v", err)
	}
	if text != "plain text" {
		t.Errorf("Text() = %q", text)
	}
}

func TestResponseJSON(t *testing.T) {
	resp := newBodyResponse(200, `{"name":"kirim","count":3}`)

	var payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := resp.JSON(&payload); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if payload.Name != "kirim" || payload.Count != 3 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestResponseJSONInvalid(t *testing.T) {
	resp := newBodyResponse(200, "not json")
	var v map[string]any
	if err := resp.JSON(&v); err == nil {
		t.Error("Expected decode error for invalid JSON")
	}
}

func TestResponseConcurrentAccess(t *testing.T) {
	resp := newBodyResponse(200, "shared body")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := resp.Text()
			if err != nil {
				t.Errorf("Text() error: %v", err)
				return
			}
			if text != "shared body" {
				t.Errorf("Text() = %q", text)
			}
		}()
	}
	wg.Wait()
}

func TestResponseClone(t *testing.T) {
	resp := newBodyResponse(200, "payload")
	if _, err := resp.Bytes(); err != nil {
		t.Fatalf("Bytes() error: %v", err)
	}

	cloned := resp.clone()
	if cloned.StatusCode != 200 {
		t.Errorf("clone status = %d", cloned.StatusCode)
	}

	// Each view reads independently.
	a, _ := io.ReadAll(cloned.Body)
	b, _ := io.ReadAll(resp.Body)
	if string(a) != "payload" || string(b) != "payload" {
		t.Errorf("clone body = %q, original body = %q", a, b)
	}

	text, err := cloned.Text()
	if err != nil {
		t.Fatalf("clone Text() error: %v", err)
	}
	if text != "payload" {
		t.Errorf("clone Text() = %q", text)
	}
}

func TestBufferResponseBody(t *testing.T) {
	closed := false
	resp := &http.Response{
		Body: &trackingCloser{Reader: strings.NewReader("buffered"), closed: &closed},
	}

	bufferResponseBody(resp)

	if !closed {
		t.Error("Expected the original body to be closed")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading buffered body: %v", err)
	}
	if string(data) != "buffered" {
		t.Errorf("buffered body = %q", data)
	}
}

func TestBufferResponseBodyNil(t *testing.T) {
	bufferResponseBody(nil)
	bufferResponseBody(&http.Response{})
}

func TestReleaseResponse(t *testing.T) {
	closed := false
	resp := &http.Response{
		Body: &trackingCloser{Reader: strings.NewReader("leftover"), closed: &closed},
	}

	releaseResponse(resp)

	if !closed {
		t.Error("Expected the body to be closed")
	}
}

func TestReleaseResponseNil(t *testing.T) {
	releaseResponse(nil)
	releaseResponse(&http.Response{})
}

type trackingCloser struct {
	io.Reader
	closed *bool
}

func (tc *trackingCloser) Close() error {
	*tc.closed = true
	return nil
}
