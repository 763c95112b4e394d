package frame

// Library is a project's frame collection, keyed by frame id. Iteration
// order is insertion order; sorting by timestamp is a presentation concern
// left to callers. Persistence is full-replace: callers always submit the
// complete desired set, never a delta.
type Library struct {
	frames []ExtractedFrame
	index  map[string]int
}

// NewLibrary builds a library from a persisted frame list. A duplicated id
// replaces the earlier record while keeping its slot.
func NewLibrary(frames []ExtractedFrame) Library {
	lib := Library{index: make(map[string]int, len(frames))}
	for _, f := range frames {
		if i, ok := lib.index[f.ID]; ok {
			lib.frames[i] = f
			continue
		}
		lib.index[f.ID] = len(lib.frames)
		lib.frames = append(lib.frames, f)
	}
	return lib
}

// Len returns the number of frames in the library
func (l Library) Len() int {
	return len(l.frames)
}

// Get returns the frame with the given id
func (l Library) Get(id string) (ExtractedFrame, bool) {
	i, ok := l.index[id]
	if !ok {
		return ExtractedFrame{}, false
	}
	return l.frames[i], true
}

// Frames returns the frames in insertion order. The returned slice is a
// copy and safe to mutate.
func (l Library) Frames() []ExtractedFrame {
	out := make([]ExtractedFrame, len(l.frames))
	copy(out, l.frames)
	return out
}

// Without returns a copy of the library with the given frame removed.
// The second return reports whether the id was present.
func (l Library) Without(id string) (Library, bool) {
	if _, ok := l.index[id]; !ok {
		return l, false
	}
	kept := make([]ExtractedFrame, 0, len(l.frames)-1)
	for _, f := range l.frames {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	return NewLibrary(kept), true
}

// Merge upserts a batch of captured frames over a copy of the existing
// library. Frames without an id are assigned one from their timestamp and
// nowMillis. An id collision replaces the prior record in place, keeping
// its slot; novel ids append. The inputs are never mutated, and re-merging
// an already-present frame leaves the library size unchanged.
func Merge(existing Library, incoming []ExtractedFrame, nowMillis int64) Library {
	merged := Library{
		frames: make([]ExtractedFrame, len(existing.frames)),
		index:  make(map[string]int, len(existing.frames)+len(incoming)),
	}
	copy(merged.frames, existing.frames)
	for id, i := range existing.index {
		merged.index[id] = i
	}

	for _, f := range incoming {
		if f.ID == "" {
			f.ID = FrameID(f.Timestamp, nowMillis)
		}
		if i, ok := merged.index[f.ID]; ok {
			merged.frames[i] = f
			continue
		}
		merged.index[f.ID] = len(merged.frames)
		merged.frames = append(merged.frames, f)
	}

	return merged
}
