package frames

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/chunking"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/operations"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

// --- Mock implementations for testing ---

// mockSampler implements frame.Sampler for testing
type mockSampler struct {
	err       error
	skip      map[int]bool // second values whose frames fail to decode
	gotSource string
	gotBatch  frame.Batch
}

func (m *mockSampler) Sample(ctx context.Context, source string, batch frame.Batch, report frame.ProgressFunc) ([]frame.Capture, error) {
	m.gotSource = source
	m.gotBatch = batch
	if m.err != nil {
		return nil, m.err
	}

	out := make([]frame.Capture, 0, len(batch.Timestamps))
	for i, ts := range batch.Timestamps {
		if !m.skip[ts.TotalSeconds()] {
			out = append(out, frame.Capture{
				Timestamp: ts,
				Image:     []byte("jpeg-" + ts.String()),
				Width:     1280,
				Height:    720,
			})
		}
		if report != nil {
			report(i+1, len(batch.Timestamps))
		}
	}
	return out, nil
}

// mockGateway implements storage.Gateway for testing. Upload failures
// match by substring because frame paths embed a per-run timestamp.
type mockGateway struct {
	signURL    string
	objects    map[string][]byte
	uploadErrs map[string]error
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		objects:    make(map[string][]byte),
		uploadErrs: make(map[string]error),
	}
}

func (m *mockGateway) SignURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return m.signURL, nil
}

func (m *mockGateway) Download(ctx context.Context, path string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGateway) Upload(ctx context.Context, path string, data []byte, opts storage.UploadOptions) error {
	for fragment, err := range m.uploadErrs {
		if strings.Contains(path, fragment) {
			return err
		}
	}
	m.objects[path] = data
	return nil
}

func (m *mockGateway) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

// mockStore implements project.Store for testing
type mockStore struct {
	projects   map[string]*project.Project
	replaced   [][]frame.ExtractedFrame
	replaceErr error
}

func newMockStore(projects ...*project.Project) *mockStore {
	s := &mockStore{projects: make(map[string]*project.Project)}
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	return s
}

func (m *mockStore) Create(ctx context.Context, p *project.Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *mockStore) Get(ctx context.Context, id string) (*project.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) List(ctx context.Context) ([]*project.Project, error) {
	return nil, nil
}

func (m *mockStore) UpdateMetadata(ctx context.Context, id string, md *project.VideoMetadata) error {
	return nil
}

func (m *mockStore) ReplaceFrames(ctx context.Context, id string, frames []frame.ExtractedFrame) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = append(m.replaced, frames)
	m.projects[id].Frames = frames
	return nil
}

func (m *mockStore) SetTranscript(ctx context.Context, id string, transcript string) error {
	return nil
}

func (m *mockStore) Close() error { return nil }

// mockStager implements Stager for testing
type mockStager struct {
	path    string
	staged  []byte
	cleaned bool
}

func (m *mockStager) Stage(name string, data []byte) (string, func(), error) {
	m.staged = data
	return m.path, func() { m.cleaned = true }, nil
}

// --- Helper functions ---

func testProject() *project.Project {
	return &project.Project{
		ID:              "p1",
		Title:           "Lecture 4",
		SourceVideoPath: "uploads/p1/lecture4.mp4",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func createTestService(sampler frame.Sampler, gw *mockGateway, store *mockStore) *Service {
	return NewService(
		sampler,
		gw,
		store,
		operations.NewTracker(),
		&mockStager{path: "/tmp/staged.mp4"},
		http.DefaultClient,
		testLogger(),
		&bytes.Buffer{},
	)
}

// --- Tests ---

func TestService_Capture_Success(t *testing.T) {
	sampler := &mockSampler{}
	gw := newMockGateway()
	store := newMockStore(testProject())
	svc := createTestService(sampler, gw, store)

	result, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:02:00", "00:00:30", "02:00", "00:01:00"},
	})
	if err != nil {
		t.Fatalf("Capture unexpected error: %v", err)
	}

	// Duplicates collapse and the sampler sees ascending order
	want := []string{"00:00:30", "00:01:00", "00:02:00"}
	if len(sampler.gotBatch.Timestamps) != len(want) {
		t.Fatalf("sampler got %d timestamps, want %d", len(sampler.gotBatch.Timestamps), len(want))
	}
	for i, w := range want {
		if got := sampler.gotBatch.Timestamps[i].String(); got != w {
			t.Errorf("sampler timestamp %d = %s, want %s", i, got, w)
		}
	}
	if sampler.gotSource != "/videos/local.mp4" {
		t.Errorf("sampler source = %q, want the local path", sampler.gotSource)
	}

	if result.Requested != 3 || result.Captured != 3 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 3 requested, 3 captured", result)
	}
	if result.LibrarySize != 3 {
		t.Errorf("LibrarySize = %d, want 3", result.LibrarySize)
	}

	// Images land under the project's frames directory
	if len(gw.objects) != 3 {
		t.Fatalf("uploaded %d images, want 3", len(gw.objects))
	}
	for path := range gw.objects {
		if !strings.HasPrefix(path, "projects/p1/frames/frame-") || !strings.HasSuffix(path, ".jpg") {
			t.Errorf("image path %q outside the frames directory convention", path)
		}
	}

	// The persisted set carries generated ids and image refs
	if len(store.replaced) != 1 {
		t.Fatalf("ReplaceFrames called %d times, want 1 (full replace)", len(store.replaced))
	}
	for _, f := range store.replaced[0] {
		if !strings.HasPrefix(f.ID, "frame-") {
			t.Errorf("frame id %q not generated", f.ID)
		}
		if f.ImageRef == "" || f.Width != 1280 || f.Height != 720 {
			t.Errorf("frame %+v missing image ref or dimensions", f)
		}
	}
}

func TestService_Capture_DropsBeyondDuration(t *testing.T) {
	sampler := &mockSampler{}

	proj := testProject()
	proj.Metadata = &project.VideoMetadata{
		Version: project.MetadataVersion,
		Chunking: &project.ChunkingMetadata{
			IsChunked:     true,
			TotalDuration: 100,
			Chunks:        []project.ChunkMetadata{},
		},
	}
	store := newMockStore(proj)
	svc := createTestService(sampler, newMockGateway(), store)

	result, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:00:30", "00:02:30"},
	})
	if err != nil {
		t.Fatalf("Capture unexpected error: %v", err)
	}

	if result.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", result.Dropped)
	}
	if len(sampler.gotBatch.Timestamps) != 1 {
		t.Errorf("sampler got %d timestamps, want 1", len(sampler.gotBatch.Timestamps))
	}
	if result.Captured != 1 {
		t.Errorf("Captured = %d, want 1", result.Captured)
	}
}

func TestService_Capture_AllTimestampsDropped(t *testing.T) {
	proj := testProject()
	proj.Metadata = &project.VideoMetadata{
		Version: project.MetadataVersion,
		Chunking: &project.ChunkingMetadata{
			IsChunked:     true,
			TotalDuration: 10,
			Chunks:        []project.ChunkMetadata{},
		},
	}
	svc := createTestService(&mockSampler{}, newMockGateway(), newMockStore(proj))

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:05:00"},
	})
	if err == nil || !strings.Contains(err.Error(), "no timestamps") {
		t.Errorf("error = %v, want no-timestamps failure", err)
	}
}

func TestService_Capture_SourceError(t *testing.T) {
	srcErr := &frame.SourceError{Source: "/videos/broken.mp4", Err: errors.New("unreadable header")}
	svc := createTestService(&mockSampler{err: srcErr}, newMockGateway(), newMockStore(testProject()))

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/broken.mp4",
		Timestamps: []string{"00:00:30"},
	})

	var gotErr *frame.SourceError
	if !errors.As(err, &gotErr) {
		t.Fatalf("error = %T (%v), want *frame.SourceError", err, err)
	}
}

func TestService_Capture_PartialSuccessOnSkippedFrames(t *testing.T) {
	// The frame at 60s fails to decode and is skipped by the sampler
	sampler := &mockSampler{skip: map[int]bool{60: true}}
	gw := newMockGateway()
	store := newMockStore(testProject())
	svc := createTestService(sampler, gw, store)

	result, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:00:30", "00:01:00", "00:01:30"},
	})
	if err != nil {
		t.Fatalf("a skipped frame must not fail the batch: %v", err)
	}

	if result.Captured != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 captured and 1 skipped", result)
	}
	if result.LibrarySize != 2 {
		t.Errorf("LibrarySize = %d, want 2", result.LibrarySize)
	}
}

func TestService_Capture_UploadFailureSkipsFrame(t *testing.T) {
	sampler := &mockSampler{}
	gw := newMockGateway()
	gw.uploadErrs["frame-00-01-00-"] = errors.New("storage quota exceeded")
	store := newMockStore(testProject())
	svc := createTestService(sampler, gw, store)

	result, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:00:30", "00:01:00", "00:01:30"},
	})
	if err != nil {
		t.Fatalf("an upload failure must not fail the batch: %v", err)
	}

	if result.Captured != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 captured and 1 skipped", result)
	}
	if len(store.replaced) != 1 || len(store.replaced[0]) != 2 {
		t.Fatalf("persisted frames = %v, want exactly the 2 uploaded ones", store.replaced)
	}
	for _, f := range store.replaced[0] {
		if f.Timestamp == "00:01:00" {
			t.Error("frame with failed upload must not reach the library")
		}
	}
}

func TestService_Capture_PersistFailure(t *testing.T) {
	store := newMockStore(testProject())
	store.replaceErr = errors.New("disk full")
	svc := createTestService(&mockSampler{}, newMockGateway(), store)

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:00:30"},
	})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error = %v, want the persistence failure", err)
	}
}

func TestService_Capture_InvalidTimestamp(t *testing.T) {
	svc := createTestService(&mockSampler{}, newMockGateway(), newMockStore(testProject()))

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"1:3"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid timestamp") {
		t.Errorf("error = %v, want invalid timestamp failure", err)
	}
}

func TestService_Capture_UnknownProject(t *testing.T) {
	svc := createTestService(&mockSampler{}, newMockGateway(), newMockStore())

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "ghost",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:00:30"},
	})
	if !errors.Is(err, project.ErrNotFound) {
		t.Errorf("error = %v, want project.ErrNotFound", err)
	}
}

func TestService_Capture_DownloadsWhenNoLocalSource(t *testing.T) {
	video := []byte("remote video bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(video)
	}))
	defer srv.Close()

	sampler := &mockSampler{}
	gw := newMockGateway()
	gw.signURL = srv.URL
	store := newMockStore(testProject())
	stager := &mockStager{path: "/tmp/p1.mp4"}

	svc := NewService(sampler, gw, store, operations.NewTracker(), stager, srv.Client(), testLogger(), &bytes.Buffer{})

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		Timestamps: []string{"00:00:30"},
	})
	if err != nil {
		t.Fatalf("Capture unexpected error: %v", err)
	}

	if !bytes.Equal(stager.staged, video) {
		t.Error("downloaded video bytes not staged")
	}
	if sampler.gotSource != "/tmp/p1.mp4" {
		t.Errorf("sampler source = %q, want the staged path", sampler.gotSource)
	}
	if !stager.cleaned {
		t.Error("staged file not cleaned up")
	}
}

func TestService_Capture_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	gw := newMockGateway()
	gw.signURL = srv.URL
	svc := NewService(&mockSampler{}, gw, newMockStore(testProject()), operations.NewTracker(), &mockStager{}, srv.Client(), testLogger(), &bytes.Buffer{})

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		Timestamps: []string{"00:00:30"},
	})

	var dlErr *chunking.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("error = %T (%v), want *chunking.DownloadError", err, err)
	}
}

func TestService_Capture_MergesIntoExistingLibrary(t *testing.T) {
	proj := testProject()
	proj.Frames = []frame.ExtractedFrame{
		{ID: "frame-00-00-10-1", Timestamp: "00:00:10", ImageRef: "projects/p1/frames/old.jpg"},
	}
	store := newMockStore(proj)
	svc := createTestService(&mockSampler{}, newMockGateway(), store)

	result, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:00:30"},
	})
	if err != nil {
		t.Fatalf("Capture unexpected error: %v", err)
	}

	if result.LibrarySize != 2 {
		t.Fatalf("LibrarySize = %d, want 2 (existing + new)", result.LibrarySize)
	}
	persisted := store.replaced[len(store.replaced)-1]
	if persisted[0].ID != "frame-00-00-10-1" {
		t.Errorf("existing frame must keep its slot, got first id %s", persisted[0].ID)
	}
}

func TestService_Capture_TracksOperation(t *testing.T) {
	tracker := operations.NewTracker()
	svc := NewService(&mockSampler{}, newMockGateway(), newMockStore(testProject()), tracker,
		&mockStager{path: "/tmp/staged.mp4"}, http.DefaultClient, testLogger(), &bytes.Buffer{})

	_, err := svc.Capture(context.Background(), CaptureInput{
		ProjectID:  "p1",
		SourcePath: "/videos/local.mp4",
		Timestamps: []string{"00:00:30", "00:01:00"},
	})
	if err != nil {
		t.Fatalf("Capture unexpected error: %v", err)
	}

	recent := tracker.Recent()
	if len(recent) != 1 {
		t.Fatalf("tracker holds %d operations, want 1", len(recent))
	}
	op := recent[0]
	if op.Type != operations.TypeFrameCapture {
		t.Errorf("operation type = %s, want %s", op.Type, operations.TypeFrameCapture)
	}
	if op.Status != operations.StatusCompleted || op.Progress != 100 {
		t.Errorf("operation = %+v, want completed at 100%%", op)
	}
}

func TestService_Remove(t *testing.T) {
	proj := testProject()
	proj.Frames = []frame.ExtractedFrame{
		{ID: "f1", Timestamp: "00:00:10", ImageRef: "r1"},
		{ID: "f2", Timestamp: "00:00:20", ImageRef: "r2"},
	}
	store := newMockStore(proj)
	svc := createTestService(&mockSampler{}, newMockGateway(), store)

	if err := svc.Remove(context.Background(), "p1", "f1"); err != nil {
		t.Fatalf("Remove unexpected error: %v", err)
	}

	persisted := store.replaced[len(store.replaced)-1]
	if len(persisted) != 1 || persisted[0].ID != "f2" {
		t.Errorf("persisted = %+v, want only f2", persisted)
	}

	if err := svc.Remove(context.Background(), "p1", "ghost"); err == nil {
		t.Error("expected error for unknown frame id")
	}
}

func TestFrameObjectPath(t *testing.T) {
	got := FrameObjectPath("p1", "00:01:30", 1700000000000)
	want := "projects/p1/frames/frame-00-01-30-1700000000000.jpg"
	if got != want {
		t.Errorf("FrameObjectPath = %q, want %q", got, want)
	}
}
