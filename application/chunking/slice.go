package chunking

import (
	"fmt"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
)

// ChunkObjectPath returns the deterministic storage path for one chunk of
// a project's audio track
func ChunkObjectPath(projectID string, index int) string {
	return fmt.Sprintf("projects/%s/audio_chunks/chunk_%d.mp3", projectID, index)
}

// ChunkDir returns the storage directory holding a project's chunks
func ChunkDir(projectID string) string {
	return fmt.Sprintf("projects/%s/audio_chunks", projectID)
}

// sliceChunk cuts the byte range of the audio buffer covering the chunk's
// time span. The audio is constant-bitrate MP3, so byte offsets are
// proportional to time. The final chunk always runs to the end of the
// buffer so no trailing bytes are lost to rounding.
func sliceChunk(audio []byte, c media.Chunk, totalDuration float64) []byte {
	n := len(audio)
	start := int(float64(n) * c.Start / totalDuration)
	end := int(float64(n) * c.End / totalDuration)

	if c.End >= totalDuration {
		end = n
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}

	return audio[start:end]
}
