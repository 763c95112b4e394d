package frame

import (
	"errors"
	"strings"
	"testing"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
)

func ts(t *testing.T, s string) media.Timestamp {
	t.Helper()
	parsed, err := media.ParseTimestamp(s)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", s, err)
	}
	return parsed
}

func TestNewBatch_DeduplicatesAndSorts(t *testing.T) {
	input := []media.Timestamp{
		ts(t, "00:02:00"),
		ts(t, "00:00:30"),
		ts(t, "02:00"), // same second value as 00:02:00
		ts(t, "00:01:00"),
		ts(t, "00:00:30"),
	}

	batch := NewBatch(input, 0)

	want := []string{"00:00:30", "00:01:00", "00:02:00"}
	if len(batch.Timestamps) != len(want) {
		t.Fatalf("got %d timestamps, want %d: %v", len(batch.Timestamps), len(want), batch.Timestamps)
	}
	for i, w := range want {
		if got := batch.Timestamps[i].String(); got != w {
			t.Errorf("timestamp %d = %s, want %s", i, got, w)
		}
	}
	if batch.Quality != DefaultJPEGQuality {
		t.Errorf("Quality = %d, want default %d", batch.Quality, DefaultJPEGQuality)
	}
}

func TestNewBatch_ExplicitQuality(t *testing.T) {
	batch := NewBatch(nil, 80)
	if batch.Quality != 80 {
		t.Errorf("Quality = %d, want 80", batch.Quality)
	}
}

func TestBatch_WithinDuration(t *testing.T) {
	batch := NewBatch([]media.Timestamp{
		ts(t, "00:00:30"),
		ts(t, "00:01:30"),
		ts(t, "00:02:30"),
	}, 0)

	trimmed, dropped := batch.WithinDuration(100)

	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(trimmed.Timestamps) != 2 {
		t.Fatalf("kept %d timestamps, want 2", len(trimmed.Timestamps))
	}
	if got := trimmed.Timestamps[1].String(); got != "00:01:30" {
		t.Errorf("last kept timestamp = %s, want 00:01:30", got)
	}
}

func TestBatch_WithinDuration_BoundaryDropped(t *testing.T) {
	batch := NewBatch([]media.Timestamp{ts(t, "00:01:40")}, 0)

	trimmed, dropped := batch.WithinDuration(100)

	if dropped != 1 || len(trimmed.Timestamps) != 0 {
		t.Errorf("timestamp equal to duration must be dropped: kept=%d dropped=%d", len(trimmed.Timestamps), dropped)
	}
}

func TestBatch_WithinDuration_UnknownDuration(t *testing.T) {
	batch := NewBatch([]media.Timestamp{ts(t, "10:00:00")}, 0)

	trimmed, dropped := batch.WithinDuration(0)

	if dropped != 0 || len(trimmed.Timestamps) != 1 {
		t.Errorf("unknown duration must drop nothing: kept=%d dropped=%d", len(trimmed.Timestamps), dropped)
	}
}

func TestSourceError(t *testing.T) {
	cause := errors.New("no such file")
	err := &SourceError{Source: "/videos/missing.mp4", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("SourceError must unwrap to its cause")
	}
	if msg := err.Error(); !strings.Contains(msg, "/videos/missing.mp4") {
		t.Errorf("error message %q should name the source", msg)
	}
}
