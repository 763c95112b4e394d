package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "data", "projects.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestProject(t *testing.T, title string) *project.Project {
	t.Helper()

	p, err := project.NewProject(title, "uploads/p1/video.mp4")
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}
	return p
}

func testMetadata() *project.VideoMetadata {
	processed := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	return &project.VideoMetadata{
		Version: project.MetadataVersion,
		Chunking: &project.ChunkingMetadata{
			IsChunked:     true,
			TotalDuration: 150,
			Status:        project.ChunkingStatusComplete,
			ProcessedAt:   &processed,
			Chunks: []project.ChunkMetadata{
				{Index: 0, StartTime: 0, EndTime: 60, Duration: 60, VideoPath: "projects/p1/chunks/chunk_000.mp3", Title: "Chunk 1 of 3", Status: project.ChunkStatusComplete},
				{Index: 1, StartTime: 40, EndTime: 100, Duration: 60, VideoPath: "projects/p1/chunks/chunk_001.mp3", Title: "Chunk 2 of 3", Status: project.ChunkStatusComplete},
			},
		},
	}
}

func testFrames() []frame.ExtractedFrame {
	return []frame.ExtractedFrame{
		{ID: "frame-00-00-30-1700000000000", Timestamp: "00:00:30", ImageRef: "projects/p1/frames/frame-00-00-30-1700000000000.jpg", Width: 1280, Height: 720},
		{ID: "frame-00-01-00-1700000000000", Timestamp: "00:01:00", ImageRef: "projects/p1/frames/frame-00-01-00-1700000000000.jpg", Width: 1280, Height: 720},
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "projects.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	p := createTestProject(t, "Lecture 4")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening an initialized database passes the version gate
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	fetched, err := reopened.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Title != "Lecture 4" {
		t.Errorf("expected title %q, got %q", "Lecture 4", fetched.Title)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("failed to doctor schema version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err = Open(path)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	p.Metadata = testMetadata()
	p.Frames = testFrames()
	p.Transcript = "welcome back everyone"

	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	fetched, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if fetched.ID != p.ID {
		t.Errorf("expected id %q, got %q", p.ID, fetched.ID)
	}
	if fetched.Title != "Lecture 4" {
		t.Errorf("expected title %q, got %q", "Lecture 4", fetched.Title)
	}
	if fetched.SourceVideoPath != "uploads/p1/video.mp4" {
		t.Errorf("unexpected source path %q", fetched.SourceVideoPath)
	}
	if fetched.Transcript != "welcome back everyone" {
		t.Errorf("unexpected transcript %q", fetched.Transcript)
	}
	if fetched.Metadata == nil || fetched.Metadata.Chunking == nil {
		t.Fatalf("expected chunking metadata, got %#v", fetched.Metadata)
	}
	if fetched.Metadata.Chunking.TotalDuration != 150 {
		t.Errorf("expected total duration 150, got %v", fetched.Metadata.Chunking.TotalDuration)
	}
	if len(fetched.Metadata.Chunking.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(fetched.Metadata.Chunking.Chunks))
	}
	if fetched.Metadata.Chunking.Chunks[1].StartTime != 40 {
		t.Errorf("expected chunk 1 start 40, got %v", fetched.Metadata.Chunking.Chunks[1].StartTime)
	}
	if len(fetched.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(fetched.Frames))
	}
	if fetched.Frames[0].ImageRef != "projects/p1/frames/frame-00-00-30-1700000000000.jpg" {
		t.Errorf("unexpected image ref %q", fetched.Frames[0].ImageRef)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Errorf("expected timestamps to round-trip, got created=%v updated=%v", fetched.CreatedAt, fetched.UpdatedAt)
	}
}

func TestCreateDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := store.Create(ctx, p)
	var persistErr *project.PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError for duplicate id, got %v", err)
	}
	if persistErr.Op != "create" {
		t.Errorf("expected op %q, got %q", "create", persistErr.Op)
	}
}

func TestGetNotFound(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Get(context.Background(), "no-such-project")
	if !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	titles := []string{"Oldest", "Middle", "Newest"}
	for i, title := range titles {
		p := createTestProject(t, title)
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := store.Create(ctx, p); err != nil {
			t.Fatalf("Create %q failed: %v", title, err)
		}
	}

	projects, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(projects))
	}
	got := []string{projects[0].Title, projects[1].Title, projects[2].Title}
	want := []string{"Newest", "Middle", "Oldest"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestListEmpty(t *testing.T) {
	store := createTestStore(t)

	projects, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected no projects, got %d", len(projects))
	}
}

func TestUpdateMetadata(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.UpdateMetadata(ctx, p.ID, testMetadata()); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}

	fetched, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Metadata == nil || fetched.Metadata.Chunking == nil {
		t.Fatalf("expected chunking metadata, got %#v", fetched.Metadata)
	}
	if !fetched.Metadata.Chunking.IsChunked {
		t.Error("expected isChunked to be set")
	}
	if fetched.Metadata.Chunking.Status != project.ChunkingStatusComplete {
		t.Errorf("expected status complete, got %q", fetched.Metadata.Chunking.Status)
	}
}

func TestUpdateMetadataUnknownProject(t *testing.T) {
	store := createTestStore(t)

	err := store.UpdateMetadata(context.Background(), "no-such-project", testMetadata())
	if !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMetadataRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	bad := testMetadata()
	bad.Version = 7

	err := store.UpdateMetadata(ctx, p.ID, bad)
	var persistErr *project.PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError for invalid metadata, got %v", err)
	}

	// The stored record is untouched
	fetched, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Metadata != nil {
		t.Errorf("expected metadata to remain empty, got %#v", fetched.Metadata)
	}
}

func TestReplaceFrames(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	p.Frames = testFrames()
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	replacement := []frame.ExtractedFrame{
		{ID: "frame-00-02-00-1700000000001", Timestamp: "00:02:00", ImageRef: "projects/p1/frames/frame-00-02-00-1700000000001.jpg"},
	}
	if err := store.ReplaceFrames(ctx, p.ID, replacement); err != nil {
		t.Fatalf("ReplaceFrames failed: %v", err)
	}

	fetched, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(fetched.Frames) != 1 {
		t.Fatalf("expected 1 frame after replace, got %d", len(fetched.Frames))
	}
	if fetched.Frames[0].ID != "frame-00-02-00-1700000000001" {
		t.Errorf("unexpected frame id %q", fetched.Frames[0].ID)
	}

	// Replacing with an empty list clears the library
	if err := store.ReplaceFrames(ctx, p.ID, nil); err != nil {
		t.Fatalf("ReplaceFrames with empty list failed: %v", err)
	}
	fetched, err = store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(fetched.Frames) != 0 {
		t.Fatalf("expected empty library, got %d frames", len(fetched.Frames))
	}
}

func TestReplaceFramesUnknownProject(t *testing.T) {
	store := createTestStore(t)

	err := store.ReplaceFrames(context.Background(), "no-such-project", testFrames())
	if !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetTranscript(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetTranscript(ctx, p.ID, "welcome back everyone"); err != nil {
		t.Fatalf("SetTranscript failed: %v", err)
	}

	fetched, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Transcript != "welcome back everyone" {
		t.Errorf("unexpected transcript %q", fetched.Transcript)
	}
}

func TestGetRejectsMalformedMetadata(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// A record written by some other tool with fields this version doesn't know
	_, err := store.db.Exec(
		`UPDATE projects SET video_metadata = '{"version":1,"bogus":true}' WHERE id = ?`, p.ID)
	if err != nil {
		t.Fatalf("failed to doctor record: %v", err)
	}

	_, err = store.Get(ctx, p.ID)
	var persistErr *project.PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError for malformed metadata, got %v", err)
	}
}

func TestGetRejectsMalformedFrames(t *testing.T) {
	ctx := context.Background()
	store := createTestStore(t)

	p := createTestProject(t, "Lecture 4")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Frame record missing its id
	_, err := store.db.Exec(
		`UPDATE projects SET extracted_frames = '[{"timestamp":"00:01:00","imageRef":"x.jpg"}]' WHERE id = ?`, p.ID)
	if err != nil {
		t.Fatalf("failed to doctor record: %v", err)
	}

	_, err = store.Get(ctx, p.ID)
	var persistErr *project.PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError for malformed frames, got %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil store failed: %v", err)
	}
}
