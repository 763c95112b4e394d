package ffmpeg

import (
	"context"
	"fmt"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
)

// Extractor implements media.AudioExtractor using ffmpeg
type Extractor struct {
	ffmpegPath string
	runner     CommandRunner
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithExtractorFFmpegPath sets a custom ffmpeg executable path
func WithExtractorFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		e.ffmpegPath = path
	}
}

// WithExtractorCommandRunner sets a custom command runner (for testing)
func WithExtractorCommandRunner(runner CommandRunner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// NewExtractor creates a new FFmpeg-based audio extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract implements media.AudioExtractor. The video buffer is fed to
// ffmpeg over stdin and the MP3 stream is read back from stdout, so no
// intermediate files touch disk.
func (e *Extractor) Extract(ctx context.Context, req *media.ExtractionRequest) ([]byte, error) {
	args := []string{
		"-i", "pipe:0",
		"-vn",                   // No video
		"-acodec", "libmp3lame", // MP3 codec
		"-ab", req.Bitrate,      // Audio bitrate
		"-f", "mp3",             // Piped output needs an explicit container
		"pipe:1",
	}

	audio, err := e.runner.RunPiped(ctx, req.Video, e.ffmpegPath, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg audio extraction failed: %w", err)
	}

	return audio, nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	_, err := e.runner.Output(ctx, e.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Extractor implements media.AudioExtractor
var _ media.AudioExtractor = (*Extractor)(nil)
