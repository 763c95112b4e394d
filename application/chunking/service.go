package chunking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/operations"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

// Service orchestrates the chunk preparation workflow: download the source
// video, extract its audio track, plan overlapping chunks, upload them and
// record the outcome on the project
type Service struct {
	gateway   storage.Gateway
	extractor media.AudioExtractor
	prober    media.DurationProber
	store     project.Store
	tracker   *operations.Tracker
	client    *http.Client
	logger    *slog.Logger
	output    io.Writer
}

// NewService creates a new chunking service
func NewService(
	gateway storage.Gateway,
	extractor media.AudioExtractor,
	prober media.DurationProber,
	store project.Store,
	tracker *operations.Tracker,
	client *http.Client,
	logger *slog.Logger,
	output io.Writer,
) *Service {
	return &Service{
		gateway:   gateway,
		extractor: extractor,
		prober:    prober,
		store:     store,
		tracker:   tracker,
		client:    client,
		logger:    logger.With("component", "chunking"),
		output:    output,
	}
}

// Input contains the parameters for one chunk preparation run
type Input struct {
	ProjectID      string  // Project whose video is being chunked
	SourcePath     string  // Storage path override (optional, defaults to the project's source video)
	ChunkSeconds   float64 // Chunk length in seconds
	OverlapSeconds float64 // Overlap between consecutive chunks in seconds
	Bitrate        string  // Audio bitrate for extraction (optional)
}

// planOptions maps the input to plan options. Leaving both values at zero
// selects the defaults; setting either uses the pair as given, so an
// explicit zero overlap is possible alongside an explicit chunk length.
func (in Input) planOptions() media.PlanOptions {
	if in.ChunkSeconds == 0 && in.OverlapSeconds == 0 {
		return media.DefaultPlanOptions()
	}
	return media.PlanOptions{ChunkSeconds: in.ChunkSeconds, OverlapSeconds: in.OverlapSeconds}
}

// Result contains the results of a successful preparation run
type Result struct {
	ProjectID     string
	TotalDuration float64
	Chunks        []project.ChunkMetadata
	Elapsed       time.Duration
}

// Prepare runs the complete chunk preparation workflow for one project.
// Stages run strictly in sequence; the first failing stage aborts the run
// with its stage-scoped error. A chunk upload failure still walks the
// remaining chunks so the error reports every failed index, and chunks
// uploaded before or after a failure are not rolled back.
func (s *Service) Prepare(ctx context.Context, input Input) (*Result, error) {
	startTime := time.Now()

	proj, err := s.store.Get(ctx, input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	sourcePath := input.SourcePath
	if sourcePath == "" {
		sourcePath = proj.SourceVideoPath
	}

	fmt.Fprintf(s.output, "Project: %s (%s)\n", proj.Title, proj.ID)
	fmt.Fprintf(s.output, "Source:  %s\n\n", sourcePath)

	// Step 1: Download the source video
	fmt.Fprintf(s.output, "[1/4] Downloading video...\n")
	video, err := s.downloadVideo(ctx, proj.ID, sourcePath)
	if err != nil {
		s.logger.Error("stage failed", "stage", "download", "project", proj.ID, "error", err)
		return nil, err
	}
	fmt.Fprintf(s.output, "      Fetched: %.1f MB\n\n", float64(len(video))/1024/1024)

	// Step 2: Extract the audio track
	fmt.Fprintf(s.output, "[2/4] Extracting audio...\n")
	audio, err := s.extractAudio(ctx, proj.ID, video, input.Bitrate)
	if err != nil {
		s.logger.Error("stage failed", "stage", "extraction", "project", proj.ID, "error", err)
		return nil, err
	}
	fmt.Fprintf(s.output, "      Audio: %.1f MB\n\n", float64(len(audio))/1024/1024)

	// Step 3: Plan the chunks
	fmt.Fprintf(s.output, "[3/4] Planning chunks...\n")
	plan, err := s.planChunks(ctx, proj.ID, audio, input.planOptions())
	if err != nil {
		s.logger.Error("stage failed", "stage", "planning", "project", proj.ID, "error", err)
		return nil, err
	}
	fmt.Fprintf(s.output, "      %d chunks over %s\n\n", plan.Count(), media.TimestampFromSeconds(int(plan.Duration)))

	// Step 4: Slice and upload
	fmt.Fprintf(s.output, "[4/4] Uploading chunks...\n")
	chunks, err := s.uploadChunks(ctx, proj.ID, audio, plan)
	if err != nil {
		// Record what did make it so the run can be audited
		if saveErr := s.saveMetadata(ctx, proj.ID, plan, chunks, project.ChunkingStatusError); saveErr != nil {
			s.logger.Error("could not record failed run", "project", proj.ID, "error", saveErr)
		}
		s.logger.Error("stage failed", "stage", "upload", "project", proj.ID, "error", err)
		return nil, err
	}

	if err := s.saveMetadata(ctx, proj.ID, plan, chunks, project.ChunkingStatusPrepared); err != nil {
		s.logger.Error("stage failed", "stage", "persist", "project", proj.ID, "error", err)
		return nil, err
	}
	fmt.Fprintf(s.output, "      Saved chunk metadata\n\n")

	elapsed := time.Since(startTime)
	fmt.Fprintf(s.output, "Done! Prepared %d chunks in %s\n", len(chunks), formatDuration(elapsed))

	return &Result{
		ProjectID:     proj.ID,
		TotalDuration: plan.Duration,
		Chunks:        chunks,
		Elapsed:       elapsed,
	}, nil
}

func (s *Service) downloadVideo(ctx context.Context, projectID, path string) ([]byte, error) {
	opID := s.tracker.Add(operations.Spec{
		Type:    operations.TypeDownload,
		Message: "Downloading source video",
		Details: map[string]string{"project": projectID, "path": path},
	})
	s.markRunning(opID)

	data, err := NewDownloader(s.gateway, s.client).Download(ctx, path)
	if err != nil {
		s.tracker.Complete(opID, false, err.Error())
		return nil, err
	}

	s.tracker.Complete(opID, true, fmt.Sprintf("Downloaded %d bytes", len(data)))
	return data, nil
}

func (s *Service) extractAudio(ctx context.Context, projectID string, video []byte, bitrate string) ([]byte, error) {
	opID := s.tracker.Add(operations.Spec{
		Type:    operations.TypeExtraction,
		Message: "Extracting audio track",
		Details: map[string]string{"project": projectID},
	})
	s.markRunning(opID)

	req, err := media.NewExtractionRequest(video, bitrate)
	if err != nil {
		extErr := &ExtractionError{Err: err}
		s.tracker.Complete(opID, false, extErr.Error())
		return nil, extErr
	}

	audio, err := s.extractor.Extract(ctx, req)
	if err != nil {
		extErr := &ExtractionError{Err: err}
		s.tracker.Complete(opID, false, extErr.Error())
		return nil, extErr
	}

	s.tracker.Complete(opID, true, fmt.Sprintf("Extracted %d bytes of audio", len(audio)))
	return audio, nil
}

func (s *Service) planChunks(ctx context.Context, projectID string, audio []byte, opts media.PlanOptions) (*media.ChunkPlan, error) {
	opID := s.tracker.Add(operations.Spec{
		Type:    operations.TypeChunking,
		Message: "Planning audio chunks",
		Details: map[string]string{"project": projectID},
	})
	s.markRunning(opID)

	duration, err := s.prober.Duration(ctx, audio)
	if err != nil {
		extErr := &ExtractionError{Err: fmt.Errorf("probing audio duration: %w", err)}
		s.tracker.Complete(opID, false, extErr.Error())
		return nil, extErr
	}

	plan, err := media.PlanChunks(duration, opts)
	if err != nil {
		s.tracker.Complete(opID, false, err.Error())
		return nil, err
	}

	s.tracker.Complete(opID, true, fmt.Sprintf("%d chunks planned", plan.Count()))
	return plan, nil
}

// uploadChunks uploads every planned chunk in index order. It never stops
// at a failed chunk: all failures are collected so the returned UploadError
// names every failed index. The returned metadata covers all planned
// chunks with per-chunk status.
func (s *Service) uploadChunks(ctx context.Context, projectID string, audio []byte, plan *media.ChunkPlan) ([]project.ChunkMetadata, error) {
	total := plan.Count()
	opID := s.tracker.Add(operations.Spec{
		Type:    operations.TypeUpload,
		Message: fmt.Sprintf("Uploading %d chunks", total),
		Details: map[string]string{"project": projectID},
	})
	s.markRunning(opID)

	opts := storage.UploadOptions{
		ContentType:  "audio/mpeg",
		CacheControl: "3600",
		Upsert:       true,
	}

	chunks := make([]project.ChunkMetadata, 0, total)
	var failed []int
	var firstErr error

	for _, c := range plan.Chunks {
		objectPath := ChunkObjectPath(projectID, c.Index)
		meta := project.ChunkMetadata{
			Index:     c.Index,
			StartTime: c.Start,
			EndTime:   c.End,
			Duration:  c.Duration(),
			VideoPath: objectPath,
			Status:    project.ChunkStatusPending,
		}

		data := sliceChunk(audio, c, plan.Duration)
		if err := s.gateway.Upload(ctx, objectPath, data, opts); err != nil {
			s.logger.Error("chunk upload failed", "project", projectID, "chunk", c.Index, "error", err)
			fmt.Fprintf(s.output, "      Chunk %d FAILED: %v\n", c.Index, err)
			meta.Status = project.ChunkStatusError
			failed = append(failed, c.Index)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			fmt.Fprintf(s.output, "      Chunk %d uploaded (%s, %.1f MB)\n", c.Index, c.Range(), float64(len(data))/1024/1024)
		}
		chunks = append(chunks, meta)

		progress := (c.Index + 1) * 100 / total
		s.tracker.Update(opID, operations.Patch{Progress: &progress})
	}

	if len(failed) > 0 {
		uploadErr := &UploadError{FailedIndices: failed, Err: firstErr}
		s.tracker.Complete(opID, false, uploadErr.Error())
		return chunks, uploadErr
	}

	s.tracker.Complete(opID, true, fmt.Sprintf("%d chunks uploaded", total))
	return chunks, nil
}

func (s *Service) saveMetadata(ctx context.Context, projectID string, plan *media.ChunkPlan, chunks []project.ChunkMetadata, status project.ChunkingStatus) error {
	now := time.Now()
	md := &project.VideoMetadata{
		Version: project.MetadataVersion,
		Chunking: &project.ChunkingMetadata{
			IsChunked:     status != project.ChunkingStatusError,
			TotalDuration: plan.Duration,
			Chunks:        chunks,
			Status:        status,
			ProcessedAt:   &now,
		},
	}
	return s.store.UpdateMetadata(ctx, projectID, md)
}

func (s *Service) markRunning(id string) {
	running := operations.StatusRunning
	s.tracker.Update(id, operations.Patch{Status: &running})
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	sec := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}
