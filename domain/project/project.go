package project

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
)

// Project is one persisted project record. Frames and Metadata are stored
// as JSON columns; both round-trip through the strict parsers in this
// package.
type Project struct {
	ID              string
	Title           string
	SourceVideoPath string
	Metadata        *VideoMetadata
	Frames          []frame.ExtractedFrame
	Transcript      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewProject creates a project record with a fresh id
func NewProject(title, sourceVideoPath string) (*Project, error) {
	if title == "" {
		return nil, fmt.Errorf("project title is required")
	}
	if sourceVideoPath == "" {
		return nil, fmt.Errorf("source video path is required")
	}

	now := time.Now()
	return &Project{
		ID:              uuid.NewString(),
		Title:           title,
		SourceVideoPath: sourceVideoPath,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Library returns the project's frames as an ordered library
func (p *Project) Library() frame.Library {
	return frame.NewLibrary(p.Frames)
}
