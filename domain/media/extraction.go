package media

import "fmt"

// DefaultAudioBitrate is the default bitrate for audio extraction
const DefaultAudioBitrate = "192k"

// ExtractionRequest represents a request to extract the audio track
// from an in-memory video buffer
type ExtractionRequest struct {
	Video   []byte
	Bitrate string
}

// NewExtractionRequest creates a new ExtractionRequest with validation
func NewExtractionRequest(video []byte, bitrate string) (*ExtractionRequest, error) {
	if len(video) == 0 {
		return nil, fmt.Errorf("video buffer is empty")
	}

	if bitrate == "" {
		bitrate = DefaultAudioBitrate
	}

	return &ExtractionRequest{
		Video:   video,
		Bitrate: bitrate,
	}, nil
}
