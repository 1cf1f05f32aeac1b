package kirimgo

import (
	"io"
)

// Progress is one transfer sample. Within a single attempt TransferredBytes
// never decreases and Percent reaches exactly 1 exactly once, at or after
// the final byte. When the total size is unknown Percent stays 0 until the
// completion sample.
type Progress struct {
	Percent          float64
	TransferredBytes int64
	TotalBytes       int64
}

// ProgressFunc receives transfer samples. It is called synchronously on the
// goroutine consuming the stream and must not retain the sample's backing
// stream.
type ProgressFunc func(Progress)

// progressReader forwards bytes from rc unchanged while emitting cumulative
// progress samples. total <= 0 means unknown.
type progressReader struct {
	rc          io.ReadCloser
	total       int64
	transferred int64
	fn          ProgressFunc
	completed   bool
}

// newProgressReader wraps rc and immediately emits the initial zero sample.
func newProgressReader(rc io.ReadCloser, total int64, fn ProgressFunc) *progressReader {
	if total < 0 {
		total = 0
	}
	pr := &progressReader{rc: rc, total: total, fn: fn}
	fn(Progress{Percent: 0, TransferredBytes: 0, TotalBytes: total})
	return pr
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.rc.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		pr.sample()
	}
	if err == io.EOF {
		pr.complete()
	}
	return n, err
}

// sample emits an intermediate progress update. Percent is held below 1
// until the completion sample so that 1 is observed exactly once.
func (pr *progressReader) sample() {
	if pr.completed {
		return
	}
	percent := 0.0
	if pr.total > 0 {
		percent = float64(pr.transferred) / float64(pr.total)
		if percent >= 1 {
			// The final byte has arrived but EOF has not; the
			// completion sample reports 1.
			return
		}
	}
	pr.fn(Progress{
		Percent:          percent,
		TransferredBytes: pr.transferred,
		TotalBytes:       pr.total,
	})
}

// complete emits the single completion sample for this attempt.
func (pr *progressReader) complete() {
	if pr.completed {
		return
	}
	pr.completed = true
	total := pr.total
	if total <= 0 || total < pr.transferred {
		total = pr.transferred
	}
	pr.fn(Progress{
		Percent:          1,
		TransferredBytes: pr.transferred,
		TotalBytes:       total,
	})
}

func (pr *progressReader) Close() error {
	return pr.rc.Close()
}
