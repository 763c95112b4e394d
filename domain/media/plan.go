package media

import "fmt"

// Default chunking parameters. Sixty-second chunks keep each upload
// comfortably under transcription payload limits, and the twenty-second
// overlap preserves sentence context across chunk boundaries.
const (
	DefaultChunkSeconds   = 60.0
	DefaultOverlapSeconds = 20.0
)

// Chunk represents one planned segment of an audio track
type Chunk struct {
	Index int
	Start float64 // seconds from the start of the track, inclusive
	End   float64 // seconds from the start of the track, exclusive
}

// Duration returns the chunk length in seconds
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// Range returns the chunk boundaries as human-readable timestamps
func (c Chunk) Range() string {
	return fmt.Sprintf("%s - %s", TimestampFromSeconds(int(c.Start)), TimestampFromSeconds(int(c.End)))
}

// PlanOptions controls how an audio track is split into chunks
type PlanOptions struct {
	ChunkSeconds   float64
	OverlapSeconds float64
}

// DefaultPlanOptions returns the standard chunking parameters
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		ChunkSeconds:   DefaultChunkSeconds,
		OverlapSeconds: DefaultOverlapSeconds,
	}
}

// ChunkPlan describes how an audio track of a known duration is split.
// The parameters that produced the plan are retained so a stored plan
// can be audited later.
type ChunkPlan struct {
	Duration       float64
	ChunkSeconds   float64
	OverlapSeconds float64
	Chunks         []Chunk
}

// Count returns the number of planned chunks
func (p *ChunkPlan) Count() int {
	return len(p.Chunks)
}

// PlanError is returned when chunking parameters cannot produce a valid plan
type PlanError struct {
	Duration       float64
	ChunkSeconds   float64
	OverlapSeconds float64
	Reason         string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("cannot plan chunks: %s (duration=%.2fs, chunk=%.2fs, overlap=%.2fs)",
		e.Reason, e.Duration, e.ChunkSeconds, e.OverlapSeconds)
}

// PlanChunks computes chunk boundaries for an audio track of the given
// duration in seconds. Chunk i starts at i*(chunk-overlap) and ends at
// the earlier of start+chunk and the track duration. Chunks are emitted
// while their start lies strictly inside the track, so the final chunk
// may be shorter than the configured length but is never empty.
func PlanChunks(duration float64, opts PlanOptions) (*ChunkPlan, error) {
	if duration <= 0 {
		return nil, &PlanError{
			Duration:       duration,
			ChunkSeconds:   opts.ChunkSeconds,
			OverlapSeconds: opts.OverlapSeconds,
			Reason:         "duration must be positive",
		}
	}
	if opts.OverlapSeconds < 0 {
		return nil, &PlanError{
			Duration:       duration,
			ChunkSeconds:   opts.ChunkSeconds,
			OverlapSeconds: opts.OverlapSeconds,
			Reason:         "overlap must not be negative",
		}
	}
	if opts.ChunkSeconds <= opts.OverlapSeconds {
		return nil, &PlanError{
			Duration:       duration,
			ChunkSeconds:   opts.ChunkSeconds,
			OverlapSeconds: opts.OverlapSeconds,
			Reason:         "chunk length must exceed overlap",
		}
	}

	step := opts.ChunkSeconds - opts.OverlapSeconds

	var chunks []Chunk
	for i := 0; ; i++ {
		start := float64(i) * step
		if start >= duration {
			break
		}
		end := start + opts.ChunkSeconds
		if end > duration {
			end = duration
		}
		chunks = append(chunks, Chunk{Index: i, Start: start, End: end})
	}

	return &ChunkPlan{
		Duration:       duration,
		ChunkSeconds:   opts.ChunkSeconds,
		OverlapSeconds: opts.OverlapSeconds,
		Chunks:         chunks,
	}, nil
}
