package kirimgo

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestRequestBodySizeNilAndEmpty(t *testing.T) {
	if got := RequestBodySize(nil); got != 0 {
		t.Errorf("RequestBodySize(nil) = %d, want 0", got)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	if got := RequestBodySize(req); got != 0 {
		t.Errorf("RequestBodySize(no body) = %d, want 0", got)
	}

	req, _ = http.NewRequest(http.MethodPost, "https://example.com/", http.NoBody)
	if got := RequestBodySize(req); got != 0 {
		t.Errorf("RequestBodySize(NoBody) = %d, want 0", got)
	}
}

func TestRequestBodySizeContentLength(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://example.com/", strings.NewReader("hello"))
	if got := RequestBodySize(req); got != 5 {
		t.Errorf("RequestBodySize = %d, want 5", got)
	}
}

func TestRequestBodySizeHeaderFallback(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://example.com/", opaqueReader{strings.NewReader("hello world")})
	req.ContentLength = 0
	req.GetBody = nil
	req.Header.Set("Content-Length", "11")

	if got := RequestBodySize(req); got != 11 {
		t.Errorf("RequestBodySize = %d, want header value 11", got)
	}
}

func TestRequestBodySizeOpaqueStream(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://example.com/", opaqueReader{strings.NewReader("hello")})
	req.ContentLength = 0
	req.GetBody = nil

	if got := RequestBodySize(req); got != -1 {
		t.Errorf("RequestBodySize = %d, want -1 for opaque stream", got)
	}
}

// opaqueReader hides the underlying reader's length.
type opaqueReader struct{ r *strings.Reader }

func (o opaqueReader) Read(p []byte) (int, error) { return o.r.Read(p) }

func TestReaderSize(t *testing.T) {
	tests := []struct {
		name   string
		reader any
		want   int64
	}{
		{"bytes.Buffer", bytes.NewBufferString("abcd"), 4},
		{"bytes.Reader", bytes.NewReader([]byte("abc")), 3},
		{"strings.Reader", strings.NewReader("ab"), 2},
		{"opaque", opaqueReader{strings.NewReader("abc")}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := tt.reader.(interface{ Read([]byte) (int, error) })
			if !ok {
				t.Fatal("not a reader")
			}
			if got := ReaderSize(r); got != tt.want {
				t.Errorf("ReaderSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderSizePartiallyConsumed(t *testing.T) {
	r := strings.NewReader("abcdef")
	buf := make([]byte, 2)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read error: %v", err)
	}

	if got := ReaderSize(r); got != 4 {
		t.Errorf("ReaderSize = %d, want remaining 4", got)
	}
}

func TestFormSize(t *testing.T) {
	form := url.Values{}
	form.Set("name", "value with spaces")
	form.Set("other", "x&y")

	if got, want := FormSize(form), int64(len(form.Encode())); got != want {
		t.Errorf("FormSize = %d, want %d", got, want)
	}
}

func TestMultipartSizeMatchesWriter(t *testing.T) {
	tests := []struct {
		name   string
		fields url.Values
		files  []MultipartFile
	}{
		{
			name: "fields only",
			fields: url.Values{
				"alpha": {"one"},
				"beta":  {"two", "three"},
			},
		},
		{
			name: "single file",
			files: []MultipartFile{
				{Field: "upload", Filename: "data.bin", Size: 1024},
			},
		},
		{
			name: "fields and files",
			fields: url.Values{
				"caption": {"a photo"},
			},
			files: []MultipartFile{
				{Field: "photo", Filename: "img.jpg", Size: 37},
				{Field: "thumb", Filename: "img_t.jpg", Size: 5},
			},
		},
		{
			name: "quoted names",
			fields: url.Values{
				`we"ird`: {"v"},
			},
			files: []MultipartFile{
				{Field: "f", Filename: `sla\sh".txt`, Size: 3},
			},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			boundary := w.Boundary()

			for name, values := range tt.fields {
				for _, value := range values {
					if err := w.WriteField(name, value); err != nil {
						t.Fatalf("WriteField: %v", err)
					}
				}
			}
			for _, f := range tt.files {
				part, err := w.CreateFormFile(f.Field, f.Filename)
				if err != nil {
					t.Fatalf("CreateFormFile: %v", err)
				}
				if _, err := part.Write(bytes.Repeat([]byte{'x'}, int(f.Size))); err != nil {
					t.Fatalf("writing part: %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			got := MultipartSize(boundary, tt.fields, tt.files)
			if got != int64(buf.Len()) {
				t.Errorf("MultipartSize = %d, writer produced %d bytes", got, buf.Len())
			}
		})
	}
}
