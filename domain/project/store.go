package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
)

// ErrNotFound is returned when a project lookup fails
var ErrNotFound = errors.New("project not found")

// PersistError is returned when the store cannot read or write a record
type PersistError struct {
	Op  string // the store operation that failed
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("project store %s failed: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Store defines the interface for project persistence.
// This is a port that can be implemented by different infrastructure adapters.
type Store interface {
	// Create inserts a new project record
	Create(ctx context.Context, p *Project) error

	// Get returns the project with the given id, or ErrNotFound
	Get(ctx context.Context, id string) (*Project, error)

	// List returns all projects, newest first
	List(ctx context.Context) ([]*Project, error)

	// UpdateMetadata replaces the project's video metadata blob
	UpdateMetadata(ctx context.Context, id string, md *VideoMetadata) error

	// ReplaceFrames replaces the project's frame list wholesale
	ReplaceFrames(ctx context.Context, id string, frames []frame.ExtractedFrame) error

	// SetTranscript stores the project's transcript
	SetTranscript(ctx context.Context, id string, transcript string) error

	// Close releases the underlying database handle
	Close() error
}
