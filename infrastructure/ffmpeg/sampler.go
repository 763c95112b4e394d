package ffmpeg

import (
	"bytes"
	"context"
	"os"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
)

// Sampler implements frame.Sampler using ffmpeg seek-and-grab. Each
// timestamp is an independent `-ss` seek that decodes exactly one frame.
type Sampler struct {
	ffmpegPath string
	runner     CommandRunner

	// mu serializes Sample calls: only one seek loop runs at a time, so
	// captures always complete in timestamp order
	mu sync.Mutex
}

// SamplerOption is a functional option for configuring Sampler
type SamplerOption func(*Sampler)

// WithSamplerFFmpegPath sets a custom ffmpeg executable path
func WithSamplerFFmpegPath(path string) SamplerOption {
	return func(s *Sampler) {
		s.ffmpegPath = path
	}
}

// WithSamplerCommandRunner sets a custom command runner (for testing)
func WithSamplerCommandRunner(runner CommandRunner) SamplerOption {
	return func(s *Sampler) {
		s.runner = runner
	}
}

// NewSampler creates a new FFmpeg-based frame sampler
func NewSampler(opts ...SamplerOption) *Sampler {
	s := &Sampler{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sample implements frame.Sampler. A missing or unreadable source fails
// with frame.SourceError; individual frames that fail to extract or decode
// are skipped and the loop continues.
func (s *Sampler) Sample(ctx context.Context, source string, batch frame.Batch, report frame.ProgressFunc) ([]frame.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(source); err != nil {
		return nil, &frame.SourceError{Source: source, Err: err}
	}

	quality := batch.Quality
	if quality <= 0 {
		quality = frame.DefaultJPEGQuality
	}

	total := len(batch.Timestamps)
	captures := make([]frame.Capture, 0, total)

	for i, ts := range batch.Timestamps {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		png, err := s.runner.RunPiped(ctx, nil, s.ffmpegPath,
			"-ss", ts.String(),
			"-i", source,
			"-frames:v", "1",
			"-f", "image2pipe",
			"-vcodec", "png",
			"pipe:1",
		)
		if err != nil {
			if report != nil {
				report(i+1, total)
			}
			continue
		}

		img, err := imaging.Decode(bytes.NewReader(png))
		if err != nil {
			if report != nil {
				report(i+1, total)
			}
			continue
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			if report != nil {
				report(i+1, total)
			}
			continue
		}

		bounds := img.Bounds()
		captures = append(captures, frame.Capture{
			Timestamp: ts,
			Image:     buf.Bytes(),
			Width:     bounds.Dx(),
			Height:    bounds.Dy(),
		})

		if report != nil {
			report(i+1, total)
		}
	}

	return captures, nil
}

// Ensure Sampler implements frame.Sampler
var _ frame.Sampler = (*Sampler)(nil)
