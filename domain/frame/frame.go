package frame

import (
	"fmt"
	"strings"
)

// ExtractedFrame is one captured video frame in a project's library.
// Field names follow the persisted project record schema.
type ExtractedFrame struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"` // HH:MM:SS or MM:SS
	ImageRef  string `json:"imageRef"`  // durable URL of the stored image
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// FrameID builds the deterministic id for a frame captured at the given
// timestamp: colons become dashes, suffixed with the creation time in
// milliseconds
func FrameID(timestamp string, nowMillis int64) string {
	return fmt.Sprintf("frame-%s-%d", strings.ReplaceAll(timestamp, ":", "-"), nowMillis)
}
