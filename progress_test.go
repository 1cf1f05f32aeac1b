package kirimgo

import (
	"io"
	"strings"
	"testing"
)

func collectSamples(t *testing.T, body string, total int64, chunk int) []Progress {
	t.Helper()
	var samples []Progress
	pr := newProgressReader(io.NopCloser(strings.NewReader(body)), total, func(p Progress) {
		samples = append(samples, p)
	})

	buf := make([]byte, chunk)
	for {
		if _, err := pr.Read(buf); err != nil {
			if err != io.EOF {
				t.Fatalf("Read error: %v", err)
			}
			break
		}
	}
	return samples
}

func TestProgressInitialZeroSample(t *testing.T) {
	var samples []Progress
	newProgressReader(io.NopCloser(strings.NewReader("abc")), 3, func(p Progress) {
		samples = append(samples, p)
	})

	if len(samples) != 1 {
		t.Fatalf("Expected exactly the initial sample, got %d", len(samples))
	}
	if samples[0].Percent != 0 || samples[0].TransferredBytes != 0 || samples[0].TotalBytes != 3 {
		t.Errorf("initial sample = %+v, want zero progress with total 3", samples[0])
	}
}

func TestProgressKnownTotal(t *testing.T) {
	samples := collectSamples(t, "abcdefgh", 8, 3)

	first := samples[0]
	if first.Percent != 0 || first.TransferredBytes != 0 {
		t.Errorf("first sample = %+v, want zero", first)
	}

	final := samples[len(samples)-1]
	if final.Percent != 1 {
		t.Errorf("final percent = %v, want 1", final.Percent)
	}
	if final.TransferredBytes != 8 || final.TotalBytes != 8 {
		t.Errorf("final sample = %+v, want 8/8", final)
	}

	var prev int64 = -1
	ones := 0
	for _, s := range samples {
		if s.TransferredBytes < prev {
			t.Fatalf("transferredBytes regressed: %d -> %d", prev, s.TransferredBytes)
		}
		prev = s.TransferredBytes
		if s.Percent == 1 {
			ones++
		} else if s.Percent < 0 || s.Percent > 1 {
			t.Errorf("percent out of range: %v", s.Percent)
		}
	}
	if ones != 1 {
		t.Errorf("percent hit 1 %d times, want exactly once", ones)
	}
}

func TestProgressUnknownTotal(t *testing.T) {
	samples := collectSamples(t, "abcdef", 0, 2)

	for _, s := range samples[:len(samples)-1] {
		if s.Percent != 0 {
			t.Errorf("intermediate percent = %v, want 0 for unknown total", s.Percent)
		}
		if s.TotalBytes != 0 {
			t.Errorf("intermediate totalBytes = %d, want 0", s.TotalBytes)
		}
	}

	final := samples[len(samples)-1]
	if final.Percent != 1 {
		t.Errorf("final percent = %v, want 1", final.Percent)
	}
	if final.TotalBytes != 6 || final.TransferredBytes != 6 {
		t.Errorf("final sample = %+v, want total backfilled to 6", final)
	}
}

func TestProgressUndersizedTotal(t *testing.T) {
	// More bytes arrive than the advertised total; the completion sample
	// corrects the total instead of reporting percent above 1.
	samples := collectSamples(t, "abcdefgh", 4, 3)

	final := samples[len(samples)-1]
	if final.Percent != 1 {
		t.Errorf("final percent = %v, want 1", final.Percent)
	}
	if final.TotalBytes != 8 {
		t.Errorf("final totalBytes = %d, want corrected to 8", final.TotalBytes)
	}
	for _, s := range samples {
		if s.Percent > 1 {
			t.Errorf("percent exceeded 1: %+v", s)
		}
	}
}

func TestProgressEmptyBody(t *testing.T) {
	samples := collectSamples(t, "", 0, 8)

	final := samples[len(samples)-1]
	if final.Percent != 1 || final.TransferredBytes != 0 || final.TotalBytes != 0 {
		t.Errorf("final sample = %+v, want completion at zero bytes", final)
	}
}

func TestProgressCompleteOnlyOnce(t *testing.T) {
	var samples []Progress
	pr := newProgressReader(io.NopCloser(strings.NewReader("ab")), 2, func(p Progress) {
		samples = append(samples, p)
	})

	buf := make([]byte, 8)
	for {
		if _, err := pr.Read(buf); err == io.EOF {
			break
		}
	}
	// Reads past EOF must not emit further samples.
	if _, err := pr.Read(buf); err != io.EOF {
		t.Fatalf("Expected EOF on drained reader, got %v", err)
	}

	ones := 0
	for _, s := range samples {
		if s.Percent == 1 {
			ones++
		}
	}
	if ones != 1 {
		t.Errorf("completion sample emitted %d times, want once", ones)
	}
}
