//go:build !opencv

package opencv

import (
	"context"
	"errors"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
)

// Sampler is a stub when GoCV/OpenCV is not available
type Sampler struct{}

// SamplerOption is a functional option for configuring Sampler
type SamplerOption func(*Sampler)

// NewSampler creates a stub sampler (requires building with -tags=opencv)
func NewSampler(opts ...SamplerOption) *Sampler {
	return &Sampler{}
}

// Sample returns an error indicating the OpenCV sampler is not available
func (s *Sampler) Sample(ctx context.Context, source string, batch frame.Batch, report frame.ProgressFunc) ([]frame.Capture, error) {
	return nil, errors.New("opencv sampler not available: build with '-tags=opencv' and install OpenCV/GoCV")
}

// Ensure Sampler implements frame.Sampler
var _ frame.Sampler = (*Sampler)(nil)
