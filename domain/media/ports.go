package media

import "context"

// AudioExtractor defines the interface for extracting an audio track from a
// video buffer. This is a port that can be implemented by different
// infrastructure adapters.
type AudioExtractor interface {
	// Extract returns the audio track of the request's video as an MP3 buffer
	Extract(ctx context.Context, req *ExtractionRequest) ([]byte, error)
}

// DurationProber defines the interface for reading the playable duration of
// a media buffer
type DurationProber interface {
	// Duration returns the media duration in seconds
	Duration(ctx context.Context, data []byte) (float64, error)
}
