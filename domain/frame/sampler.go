package frame

import (
	"context"
	"fmt"
	"sort"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
)

// DefaultJPEGQuality is the encode quality for captured frame images
const DefaultJPEGQuality = 95

// Capture is one successfully captured frame
type Capture struct {
	Timestamp media.Timestamp
	Image     []byte // encoded JPEG bytes
	Width     int
	Height    int
}

// Batch is a sampling request. Construct it with NewBatch so the
// timestamps are deduplicated and sorted before any adapter sees them.
type Batch struct {
	Timestamps []media.Timestamp
	Quality    int
}

// NewBatch builds a Batch from raw timestamps: duplicates (by second
// value) collapse to one entry and the result is sorted ascending.
// Input order does not matter. A quality of 0 selects the default.
func NewBatch(timestamps []media.Timestamp, quality int) Batch {
	if quality == 0 {
		quality = DefaultJPEGQuality
	}

	seen := make(map[int]bool, len(timestamps))
	unique := make([]media.Timestamp, 0, len(timestamps))
	for _, ts := range timestamps {
		s := ts.TotalSeconds()
		if seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, ts)
	}
	sort.Slice(unique, func(i, j int) bool {
		return unique[i].Before(unique[j])
	})

	return Batch{Timestamps: unique, Quality: quality}
}

// WithinDuration drops timestamps at or beyond the given duration in
// seconds and returns the trimmed batch plus the number dropped. A zero
// or negative duration means unknown and drops nothing.
func (b Batch) WithinDuration(duration float64) (Batch, int) {
	if duration <= 0 {
		return b, 0
	}
	kept := make([]media.Timestamp, 0, len(b.Timestamps))
	for _, ts := range b.Timestamps {
		if float64(ts.TotalSeconds()) < duration {
			kept = append(kept, ts)
		}
	}
	dropped := len(b.Timestamps) - len(kept)
	return Batch{Timestamps: kept, Quality: b.Quality}, dropped
}

// ProgressFunc reports incremental sampling progress after each processed
// timestamp
type ProgressFunc func(completed, total int)

// Sampler defines the interface for capturing frames from a video source.
// This is a port that can be implemented by different infrastructure
// adapters.
type Sampler interface {
	// Sample captures one frame per batch timestamp, strictly in order.
	// A frame that fails to decode or encode is skipped and the batch
	// continues; the captures returned are the ones that succeeded.
	Sample(ctx context.Context, source string, batch Batch, report ProgressFunc) ([]Capture, error)
}

// SourceError is returned when the video source cannot be opened at all
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("video source %q could not be loaded: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
