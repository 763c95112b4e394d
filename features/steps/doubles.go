//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/transcription"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/sqlite"
)

// stubGateway implements storage.Gateway against an in-memory object map.
// Signed URLs resolve to whatever test server the scenario wires up.
type stubGateway struct {
	signURL      string
	objects      map[string][]byte
	uploadErrs   map[string]error // fail uploads at these exact paths
	failContains []string         // fail uploads whose path contains any fragment
	listed       []storage.ObjectInfo
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		objects:    make(map[string][]byte),
		uploadErrs: make(map[string]error),
	}
}

func (g *stubGateway) SignURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return g.signURL, nil
}

func (g *stubGateway) Download(ctx context.Context, path string) ([]byte, error) {
	data, ok := g.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %q not found", path)
	}
	return data, nil
}

func (g *stubGateway) Upload(ctx context.Context, path string, data []byte, opts storage.UploadOptions) error {
	if err, ok := g.uploadErrs[path]; ok {
		return err
	}
	for _, fragment := range g.failContains {
		if strings.Contains(path, fragment) {
			return fmt.Errorf("storage rejected %q", path)
		}
	}
	g.objects[path] = data
	return nil
}

func (g *stubGateway) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return g.listed, nil
}

// storedUnder counts the stored objects under a directory prefix
func (g *stubGateway) storedUnder(prefix string) int {
	count := 0
	for path := range g.objects {
		if strings.HasPrefix(path, prefix+"/") {
			count++
		}
	}
	return count
}

// stubExtractor implements media.AudioExtractor
type stubExtractor struct {
	audio []byte
	err   error
}

func (e *stubExtractor) Extract(ctx context.Context, req *media.ExtractionRequest) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.audio, nil
}

// stubProber implements media.DurationProber
type stubProber struct {
	duration float64
	err      error
}

func (p *stubProber) Duration(ctx context.Context, data []byte) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.duration, nil
}

// stubSampler implements frame.Sampler, fabricating one capture per
// timestamp and recording the order it was asked to sample in
type stubSampler struct {
	sampled []string
	skip    map[string]bool // timestamps whose capture silently fails
}

func (s *stubSampler) Sample(ctx context.Context, source string, batch frame.Batch, report frame.ProgressFunc) ([]frame.Capture, error) {
	var out []frame.Capture
	for i, ts := range batch.Timestamps {
		s.sampled = append(s.sampled, ts.String())
		if s.skip != nil && s.skip[ts.String()] {
			continue
		}
		out = append(out, frame.Capture{
			Timestamp: ts,
			Image:     []byte("jpeg-" + ts.String()),
			Width:     1280,
			Height:    720,
		})
		if report != nil {
			report(i+1, len(batch.Timestamps))
		}
	}
	return out, nil
}

// stubStager implements frames.Stager, writing each staged buffer into the
// scenario's temp dir
type stubStager struct {
	dir   string
	names []string
	data  [][]byte
}

func (s *stubStager) Stage(name string, data []byte) (string, func(), error) {
	s.names = append(s.names, name)
	s.data = append(s.data, data)

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}

// stubRequester implements transcription.Requester
type stubRequester struct {
	transcript string
	err        error
	calls      int
}

func (r *stubRequester) Request(ctx context.Context, projectID string) (*transcription.Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &transcription.Result{Transcript: r.transcript}, nil
}

// openTempStore opens a real project store inside the scenario's temp dir
func openTempStore(dir string) (*sqlite.Store, error) {
	return sqlite.Open(filepath.Join(dir, "projects.db"))
}

// chunkedMetadata builds valid chunking metadata covering the given
// duration, the way a completed preparation run records it
func chunkedMetadata(projectID string, totalDuration float64, chunkCount int) *project.VideoMetadata {
	now := time.Now()
	chunks := make([]project.ChunkMetadata, chunkCount)
	for i := range chunks {
		start := float64(i) * 40
		chunks[i] = project.ChunkMetadata{
			Index:     i,
			StartTime: start,
			EndTime:   start + 60,
			Duration:  60,
			VideoPath: fmt.Sprintf("projects/%s/audio_chunks/chunk_%d.mp3", projectID, i),
			Status:    project.ChunkStatusPending,
		}
	}
	return &project.VideoMetadata{
		Version: project.MetadataVersion,
		Chunking: &project.ChunkingMetadata{
			IsChunked:     true,
			TotalDuration: totalDuration,
			Chunks:        chunks,
			Status:        project.ChunkingStatusPrepared,
			ProcessedAt:   &now,
		},
	}
}
