package kirimgo

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// RequestBodySize returns the number of bytes the request body will carry,
// or -1 when it cannot be determined without consuming the stream. It is
// re-evaluated whenever a hook replaces the request so upload progress
// totals track the body that is actually sent.
func RequestBodySize(req *http.Request) int64 {
	if req == nil {
		return 0
	}
	if req.Body == nil || req.Body == http.NoBody {
		return 0
	}
	if req.ContentLength > 0 {
		return req.ContentLength
	}
	if v := req.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	if req.GetBody != nil {
		snapshot, err := req.GetBody()
		if err == nil {
			defer snapshot.Close()
			if n := ReaderSize(snapshot); n >= 0 {
				return n
			}
		}
	}
	return ReaderSize(req.Body)
}

// ReaderSize reports the remaining length of r when its concrete type
// exposes one, or -1 for opaque streams.
func ReaderSize(r io.Reader) int64 {
	switch v := r.(type) {
	case *bytes.Buffer:
		return int64(v.Len())
	case *bytes.Reader:
		return int64(v.Len())
	case *strings.Reader:
		return int64(v.Len())
	case io.Seeker:
		cur, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		end, err := v.Seek(0, io.SeekEnd)
		if err != nil {
			return -1
		}
		if _, err := v.Seek(cur, io.SeekStart); err != nil {
			return -1
		}
		return end - cur
	default:
		type lengther interface{ Len() int }
		if l, ok := r.(lengther); ok {
			return int64(l.Len())
		}
		return -1
	}
}

// FormSize returns the encoded length of a URL-encoded form body.
func FormSize(form url.Values) int64 {
	return int64(len(form.Encode()))
}

// MultipartFile describes one file part for MultipartSize.
type MultipartFile struct {
	Field    string
	Filename string
	Size     int64
}

// MultipartSize computes the exact encoded size of a multipart/form-data
// body with the given boundary, accounting for per-part headers and
// boundary overhead the same way multipart.Writer lays them out. Fields are
// written in url.Values iteration order followed by files; part order does
// not affect the total.
func MultipartSize(boundary string, fields url.Values, files []MultipartFile) int64 {
	var total int64
	parts := 0

	partOverhead := func(first bool) int64 {
		// "--boundary\r\n" for the first part, "\r\n--boundary\r\n" after.
		n := int64(len(boundary)) + 4
		if !first {
			n += 2
		}
		return n
	}

	for name, values := range fields {
		for _, value := range values {
			total += partOverhead(parts == 0)
			header := "Content-Disposition: form-data; name=\"" +
				escapeQuotes(name) + "\"\r\n\r\n"
			total += int64(len(header)) + int64(len(value))
			parts++
		}
	}
	for _, f := range files {
		total += partOverhead(parts == 0)
		header := "Content-Disposition: form-data; name=\"" +
			escapeQuotes(f.Field) + "\"; filename=\"" +
			escapeQuotes(f.Filename) + "\"\r\n" +
			"Content-Type: application/octet-stream\r\n\r\n"
		total += int64(len(header)) + f.Size
		parts++
	}

	// Closing boundary: "\r\n--boundary--\r\n".
	return total + int64(len(boundary)) + 8
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
