// Package filesystem provides local file staging and checks for media buffers.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/frames"
)

// Staging materializes in-memory media buffers as local files so that
// seek-based tools can work on them
type Staging struct {
	workDir string
}

// NewStaging creates a staging area rooted at workDir. An empty workDir
// falls back to the system temp directory.
func NewStaging(workDir string) *Staging {
	return &Staging{workDir: workDir}
}

// Stage writes data to a temporary file and returns its path plus a
// cleanup func that removes it
func (s *Staging) Stage(name string, data []byte) (string, func(), error) {
	dir := s.workDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("create staging directory: %w", err)
	}

	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		name = "media"
	}

	f, err := os.CreateTemp(dir, "slideforge-*-"+name)
	if err != nil {
		return "", nil, fmt.Errorf("create staging file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close staging file: %w", err)
	}

	return path, cleanup, nil
}

// Ensure Staging implements frames.Stager
var _ frames.Stager = (*Staging)(nil)
