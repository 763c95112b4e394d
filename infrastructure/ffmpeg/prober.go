package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
)

// Prober implements media.DurationProber using ffprobe
type Prober struct {
	ffprobePath string
	runner      CommandRunner
}

// ProberOption is a functional option for configuring Prober
type ProberOption func(*Prober)

// WithProberFFprobePath sets a custom ffprobe executable path
func WithProberFFprobePath(path string) ProberOption {
	return func(p *Prober) {
		p.ffprobePath = path
	}
}

// WithProberCommandRunner sets a custom command runner (for testing)
func WithProberCommandRunner(runner CommandRunner) ProberOption {
	return func(p *Prober) {
		p.runner = runner
	}
}

// NewProber creates a new FFprobe-based duration prober
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Duration implements media.DurationProber. The buffer is fed over stdin
// and the container duration in seconds is read from ffprobe's output.
func (p *Prober) Duration(ctx context.Context, data []byte) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"pipe:0",
	}

	out, err := p.runner.RunPiped(ctx, data, p.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	raw := strings.TrimSpace(string(out))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %w", raw, err)
	}

	return duration, nil
}

// VerifyInstalled checks that ffprobe is available
func (p *Prober) VerifyInstalled(ctx context.Context) error {
	_, err := p.runner.Output(ctx, p.ffprobePath, "-version")
	if err != nil {
		return fmt.Errorf("ffprobe not found or not executable: %w", err)
	}
	return nil
}

// Ensure Prober implements media.DurationProber
var _ media.DurationProber = (*Prober)(nil)
