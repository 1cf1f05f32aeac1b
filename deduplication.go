package kirimgo

import (
	"net/http"

	"golang.org/x/sync/singleflight"
)

// deduplicator coalesces concurrent identical in-flight exchanges so only
// one hits the transport. The shared result is fully buffered before being
// handed out, so every caller can read the body independently.
type deduplicator struct {
	group singleflight.Group
}

// do runs fn once per key among concurrent callers and fans the buffered
// response out to all of them.
func (d *deduplicator) do(key string, fn func() (*Response, error)) (*Response, error, bool) {
	v, err, shared := d.group.Do(key, func() (any, error) {
		resp, err := fn()
		if resp != nil {
			// Buffer now: once the flight completes the body is
			// shared between callers.
			if _, berr := resp.Bytes(); berr != nil && err == nil {
				return resp, berr
			}
		}
		return resp, err
	})
	resp, _ := v.(*Response)
	if resp != nil && shared {
		resp = resp.clone()
	}
	return resp, err, shared
}

// dedupEligible reports whether the request may be coalesced.
func (c *Client) dedupEligible(req *http.Request) bool {
	return c.dedup != nil && c.dedupCondition != nil && c.dedupCondition(req) && req.Body == nil
}
