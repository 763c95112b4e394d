package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
)

// MetadataVersion is the current video_metadata schema version. Records
// carrying any other version are rejected rather than migrated.
const MetadataVersion = 1

// ChunkingStatus is the lifecycle state of a project's chunk preparation
type ChunkingStatus string

const (
	ChunkingStatusPrepared   ChunkingStatus = "prepared"
	ChunkingStatusProcessing ChunkingStatus = "processing"
	ChunkingStatusComplete   ChunkingStatus = "complete"
	ChunkingStatusError      ChunkingStatus = "error"
)

// ChunkStatus is the lifecycle state of one uploaded chunk
type ChunkStatus string

const (
	ChunkStatusPending    ChunkStatus = "pending"
	ChunkStatusProcessing ChunkStatus = "processing"
	ChunkStatusComplete   ChunkStatus = "complete"
	ChunkStatusError      ChunkStatus = "error"
)

// VideoMetadata is the versioned metadata blob stored on a project record
type VideoMetadata struct {
	Version  int               `json:"version"`
	Chunking *ChunkingMetadata `json:"chunking,omitempty"`
}

// ChunkingMetadata records the outcome of a chunk preparation run
type ChunkingMetadata struct {
	IsChunked     bool            `json:"isChunked"`
	TotalDuration float64         `json:"totalDuration,omitempty"`
	Chunks        []ChunkMetadata `json:"chunks"`
	Status        ChunkingStatus  `json:"status,omitempty"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
}

// ChunkMetadata describes one planned and uploaded chunk
type ChunkMetadata struct {
	Index     int         `json:"index"`
	StartTime float64     `json:"startTime"`
	EndTime   float64     `json:"endTime,omitempty"`
	Duration  float64     `json:"duration,omitempty"`
	VideoPath string      `json:"videoPath"`
	Title     string      `json:"title,omitempty"`
	Status    ChunkStatus `json:"status,omitempty"`
}

// ParseVideoMetadata decodes and validates a stored video_metadata blob.
// Decoding is strict: unknown fields, a missing or wrong version, and
// structurally invalid chunk lists are all errors, never defaulted.
func ParseVideoMetadata(data []byte) (*VideoMetadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var md VideoMetadata
	if err := dec.Decode(&md); err != nil {
		return nil, fmt.Errorf("malformed video metadata: %w", err)
	}

	if err := md.Validate(); err != nil {
		return nil, err
	}
	return &md, nil
}

// Validate checks version and chunk list structure
func (m *VideoMetadata) Validate() error {
	if m.Version != MetadataVersion {
		return fmt.Errorf("unsupported video metadata version %d (want %d)", m.Version, MetadataVersion)
	}

	if m.Chunking == nil {
		return nil
	}

	for i, c := range m.Chunking.Chunks {
		if c.Index != i {
			return fmt.Errorf("chunk indices must be contiguous from 0: chunk at position %d has index %d", i, c.Index)
		}
		if c.VideoPath == "" {
			return fmt.Errorf("chunk %d is missing its storage path", c.Index)
		}
		switch c.Status {
		case "", ChunkStatusPending, ChunkStatusProcessing, ChunkStatusComplete, ChunkStatusError:
		default:
			return fmt.Errorf("chunk %d has unknown status %q", c.Index, c.Status)
		}
	}

	switch m.Chunking.Status {
	case "", ChunkingStatusPrepared, ChunkingStatusProcessing, ChunkingStatusComplete, ChunkingStatusError:
	default:
		return fmt.Errorf("unknown chunking status %q", m.Chunking.Status)
	}

	return nil
}

// ParseFrames decodes and validates a stored extracted_frames blob.
// Every frame must carry an id, a timestamp, and an image reference.
func ParseFrames(data []byte) ([]frame.ExtractedFrame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var frames []frame.ExtractedFrame
	if err := dec.Decode(&frames); err != nil {
		return nil, fmt.Errorf("malformed frame list: %w", err)
	}

	for i, f := range frames {
		if f.ID == "" {
			return nil, fmt.Errorf("frame at position %d is missing its id", i)
		}
		if f.Timestamp == "" {
			return nil, fmt.Errorf("frame %s is missing its timestamp", f.ID)
		}
		if f.ImageRef == "" {
			return nil, fmt.Errorf("frame %s is missing its image reference", f.ID)
		}
	}

	return frames, nil
}
