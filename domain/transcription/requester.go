package transcription

import "context"

// Result is a completed transcription for one project
type Result struct {
	Transcript string
}

// Requester defines the interface for the external transcription service.
// This is a port that can be implemented by different infrastructure adapters.
type Requester interface {
	// Request asks the service to transcribe a project's uploaded chunks
	Request(ctx context.Context, projectID string) (*Result, error)
}
