//go:build opencv

package opencv

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
)

// Sampler implements frame.Sampler using GoCV. One VideoCapture is opened
// per batch and reused across seeks, which is considerably faster than
// spawning ffmpeg per frame on long videos.
type Sampler struct {
	// mu serializes Sample calls: only one seek loop runs at a time, so
	// captures always complete in timestamp order
	mu sync.Mutex
}

// SamplerOption is a functional option for configuring Sampler
type SamplerOption func(*Sampler)

// NewSampler creates a new GoCV-based frame sampler
func NewSampler(opts ...SamplerOption) *Sampler {
	s := &Sampler{}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sample implements frame.Sampler. A source that cannot be opened fails
// with frame.SourceError; individual frames that fail to read or encode
// are skipped and the loop continues.
func (s *Sampler) Sample(ctx context.Context, source string, batch frame.Batch, report frame.ProgressFunc) ([]frame.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capture, err := gocv.VideoCaptureFile(source)
	if err != nil {
		return nil, &frame.SourceError{Source: source, Err: err}
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return nil, &frame.SourceError{Source: source, Err: fmt.Errorf("video capture failed to open")}
	}

	quality := batch.Quality
	if quality <= 0 {
		quality = frame.DefaultJPEGQuality
	}

	img := gocv.NewMat()
	defer img.Close()

	total := len(batch.Timestamps)
	captures := make([]frame.Capture, 0, total)

	for i, ts := range batch.Timestamps {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		capture.Set(gocv.VideoCapturePosMsec, float64(ts.TotalSeconds())*1000)
		if ok := capture.Read(&img); !ok || img.Empty() {
			if report != nil {
				report(i+1, total)
			}
			continue
		}

		encoded, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
		if err != nil {
			if report != nil {
				report(i+1, total)
			}
			continue
		}

		data := make([]byte, len(encoded))
		copy(data, encoded)

		captures = append(captures, frame.Capture{
			Timestamp: ts,
			Image:     data,
			Width:     img.Cols(),
			Height:    img.Rows(),
		})

		if report != nil {
			report(i+1, total)
		}
	}

	return captures, nil
}

// Ensure Sampler implements frame.Sampler
var _ frame.Sampler = (*Sampler)(nil)
