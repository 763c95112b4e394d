package chunking

import (
	"context"
	"fmt"
	"path"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

// MatchedChunk pairs a recorded chunk with the stored object backing it
type MatchedChunk struct {
	Chunk  project.ChunkMetadata
	Object storage.ObjectInfo
}

// ReconcileReport compares a project's persisted chunk records against
// what the store actually holds under the project's chunk directory
type ReconcileReport struct {
	ProjectID string
	Expected  int
	Matched   []MatchedChunk
	Missing   []project.ChunkMetadata // recorded on the project but absent from storage
	Orphaned  []storage.ObjectInfo    // stored but not recorded on the project
}

// Clean returns true when records and storage agree exactly
func (r *ReconcileReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Orphaned) == 0
}

// Reconcile lists the project's chunk directory and matches each stored
// object against the persisted chunk metadata. Nothing is deleted; the
// report is advisory.
func (s *Service) Reconcile(ctx context.Context, projectID string) (*ReconcileReport, error) {
	return Reconcile(ctx, s.store, s.gateway, projectID)
}

// Reconcile compares a project's chunk records against storage. It needs
// only the store and gateway, so callers that never slice audio can use it
// without assembling a full Service.
func Reconcile(ctx context.Context, store project.Store, gateway storage.Gateway, projectID string) (*ReconcileReport, error) {
	proj, err := store.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	var chunks []project.ChunkMetadata
	if proj.Metadata != nil && proj.Metadata.Chunking != nil {
		chunks = proj.Metadata.Chunking.Chunks
	}

	objects, err := gateway.List(ctx, ChunkDir(projectID))
	if err != nil {
		return nil, fmt.Errorf("listing chunk objects: %w", err)
	}

	stored := make(map[string]storage.ObjectInfo, len(objects))
	for _, obj := range objects {
		stored[obj.Name] = obj
	}

	report := &ReconcileReport{ProjectID: projectID, Expected: len(chunks)}

	claimed := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		name := path.Base(c.VideoPath)
		claimed[name] = true
		if obj, ok := stored[name]; ok {
			report.Matched = append(report.Matched, MatchedChunk{Chunk: c, Object: obj})
		} else {
			report.Missing = append(report.Missing, c)
		}
	}

	for _, obj := range objects {
		if !claimed[obj.Name] {
			report.Orphaned = append(report.Orphaned, obj)
		}
	}

	return report, nil
}
