package operations

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxHistory is the maximum number of operation records the tracker keeps.
// Once exceeded, the oldest records are silently dropped.
const MaxHistory = 30

// Type identifies what kind of work an operation tracks
type Type string

const (
	TypeDownload      Type = "download"
	TypeExtraction    Type = "extraction"
	TypeChunking      Type = "chunking"
	TypeUpload        Type = "upload"
	TypeFrameCapture  Type = "frameCapture"
	TypeTranscription Type = "transcription"
)

// Status is the lifecycle state of an operation
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Operation is one tracked progress record
type Operation struct {
	ID        string
	Type      Type
	Status    Status
	Progress  int // 0..100
	Message   string
	Timestamp time.Time
	Details   map[string]string
}

// Terminal returns true once the operation has finished, either way
func (o Operation) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusFailed
}

// Spec describes a new operation to track
type Spec struct {
	Type    Type
	Message string
	Details map[string]string
}

// Patch carries a partial update; nil fields are left unchanged
type Patch struct {
	Status   *Status
	Progress *int
	Message  *string
	Details  map[string]string
}

// Tracker is a bounded, newest-first ledger of operation records. It is
// safe for concurrent use.
type Tracker struct {
	mu  sync.Mutex
	ops []Operation
}

// NewTracker creates an empty Tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Add inserts a new pending operation at the head of the ledger and
// returns its id. If the ledger now exceeds MaxHistory, the oldest
// records are dropped.
func (t *Tracker) Add(spec Spec) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	op := Operation{
		ID:        "op-" + uuid.NewString(),
		Type:      spec.Type,
		Status:    StatusPending,
		Message:   spec.Message,
		Timestamp: time.Now(),
		Details:   spec.Details,
	}

	t.ops = append([]Operation{op}, t.ops...)
	if len(t.ops) > MaxHistory {
		t.ops = t.ops[:MaxHistory]
	}

	return op.ID
}

// Update applies a partial update to the operation with the given id,
// mutating the record in place. It returns false if the id is unknown.
func (t *Tracker) Update(id string, patch Patch) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.ops {
		if t.ops[i].ID != id {
			continue
		}
		if patch.Status != nil {
			t.ops[i].Status = *patch.Status
		}
		if patch.Progress != nil {
			t.ops[i].Progress = *patch.Progress
		}
		if patch.Message != nil {
			t.ops[i].Message = *patch.Message
		}
		if patch.Details != nil {
			if t.ops[i].Details == nil {
				t.ops[i].Details = make(map[string]string, len(patch.Details))
			}
			for k, v := range patch.Details {
				t.ops[i].Details[k] = v
			}
		}
		return true
	}
	return false
}

// Complete marks the operation finished. A successful completion also
// sets progress to 100.
func (t *Tracker) Complete(id string, success bool, message string) bool {
	status := StatusCompleted
	if !success {
		status = StatusFailed
	}
	patch := Patch{Status: &status, Message: &message}
	if success {
		full := 100
		patch.Progress = &full
	}
	return t.Update(id, patch)
}

// Remove deletes the operation with the given id
func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.ops {
		if t.ops[i].ID == id {
			t.ops = append(t.ops[:i], t.ops[i+1:]...)
			return true
		}
	}
	return false
}

// ClearCompleted removes every terminal record, keeping active ones
func (t *Tracker) ClearCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.ops[:0]
	for _, op := range t.ops {
		if !op.Terminal() {
			kept = append(kept, op)
		}
	}
	t.ops = kept
}

// ClearAll removes every record
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ops = nil
}

// Active returns the pending and running operations, newest first
func (t *Tracker) Active() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Operation
	for _, op := range t.ops {
		if op.Status == StatusPending || op.Status == StatusRunning {
			out = append(out, op)
		}
	}
	return out
}

// Recent returns all tracked operations, newest first
func (t *Tracker) Recent() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Operation, len(t.ops))
	copy(out, t.ops)
	return out
}
