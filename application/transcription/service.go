// Package transcription requests transcripts for projects with prepared chunks.
package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/operations"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/transcription"
)

// Service asks the external transcription service for a project's transcript
// and stores the result on the project record
type Service struct {
	requester transcription.Requester
	store     project.Store
	tracker   *operations.Tracker
	logger    *slog.Logger
	output    io.Writer
}

// NewService creates a new transcription service
func NewService(
	requester transcription.Requester,
	store project.Store,
	tracker *operations.Tracker,
	logger *slog.Logger,
	output io.Writer,
) *Service {
	return &Service{
		requester: requester,
		store:     store,
		tracker:   tracker,
		logger:    logger.With("component", "transcription"),
		output:    output,
	}
}

// Result contains the outcome of a transcription run
type Result struct {
	ProjectID  string
	Transcript string
	Elapsed    time.Duration
}

// Run requests a transcript for the project and persists it. The project
// must have prepared chunks; the external service reads them from storage.
func (s *Service) Run(ctx context.Context, projectID string) (*Result, error) {
	startTime := time.Now()

	proj, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	if proj.Metadata == nil || proj.Metadata.Chunking == nil || len(proj.Metadata.Chunking.Chunks) == 0 {
		return nil, fmt.Errorf("project %s has no prepared chunks: run prepare-chunks first", proj.ID)
	}

	fmt.Fprintf(s.output, "Project: %s (%s)\n", proj.Title, proj.ID)
	fmt.Fprintf(s.output, "Chunks:  %d\n\n", len(proj.Metadata.Chunking.Chunks))

	opID := s.tracker.Add(operations.Spec{
		Type:    operations.TypeTranscription,
		Message: "Requesting transcription",
		Details: map[string]string{"project": proj.ID},
	})
	running := operations.StatusRunning
	s.tracker.Update(opID, operations.Patch{Status: &running})

	fmt.Fprintf(s.output, "[1/2] Requesting transcription...\n")
	result, err := s.requester.Request(ctx, proj.ID)
	if err != nil {
		s.tracker.Complete(opID, false, err.Error())
		s.logger.Error("stage failed", "stage", "request", "project", proj.ID, "error", err)
		return nil, err
	}
	fmt.Fprintf(s.output, "      Received %d characters\n\n", len(result.Transcript))

	fmt.Fprintf(s.output, "[2/2] Saving transcript...\n")
	if err := s.store.SetTranscript(ctx, proj.ID, result.Transcript); err != nil {
		s.tracker.Complete(opID, false, err.Error())
		s.logger.Error("stage failed", "stage", "persist", "project", proj.ID, "error", err)
		return nil, err
	}

	s.tracker.Complete(opID, true, fmt.Sprintf("Transcript saved (%d characters)", len(result.Transcript)))

	elapsed := time.Since(startTime)
	fmt.Fprintf(s.output, "\nDone! Transcript saved in %s\n", elapsed.Round(time.Second))

	return &Result{
		ProjectID:  proj.ID,
		Transcript: result.Transcript,
		Elapsed:    elapsed,
	}, nil
}
