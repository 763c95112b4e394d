package frames

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/chunking"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/operations"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

// Stager materializes a downloaded video buffer as a local file the
// sampler can seek in
type Stager interface {
	// Stage writes data to a temporary file and returns its path plus a
	// cleanup func that removes it
	Stage(name string, data []byte) (string, func(), error)
}

// Service orchestrates frame capture: normalize the requested timestamps,
// sample the video, upload the captured images and merge them into the
// project's frame library
type Service struct {
	sampler frame.Sampler
	gateway storage.Gateway
	store   project.Store
	tracker *operations.Tracker
	stager  Stager
	client  *http.Client
	logger  *slog.Logger
	output  io.Writer
}

// NewService creates a new frame capture service
func NewService(
	sampler frame.Sampler,
	gateway storage.Gateway,
	store project.Store,
	tracker *operations.Tracker,
	stager Stager,
	client *http.Client,
	logger *slog.Logger,
	output io.Writer,
) *Service {
	return &Service{
		sampler: sampler,
		gateway: gateway,
		store:   store,
		tracker: tracker,
		stager:  stager,
		client:  client,
		logger:  logger.With("component", "frames"),
		output:  output,
	}
}

// CaptureInput contains the parameters for one capture run
type CaptureInput struct {
	ProjectID  string
	SourcePath string   // Local video file (optional; defaults to downloading the project source)
	Timestamps []string // Target timestamps, HH:MM:SS or MM:SS, any order, duplicates allowed
	Quality    int      // JPEG quality 1-100 (0 selects the default)
}

// CaptureResult contains the results of a capture run
type CaptureResult struct {
	Requested   int // unique timestamps after normalization
	Dropped     int // timestamps beyond the known video duration
	Captured    int // frames captured and merged into the library
	Skipped     int // frames skipped after decode, encode or upload failures
	LibrarySize int
	Elapsed     time.Duration
}

// FrameObjectPath returns the storage path for one captured frame image
func FrameObjectPath(projectID, timestamp string, nowMillis int64) string {
	return fmt.Sprintf("projects/%s/frames/%s.jpg", projectID, frame.FrameID(timestamp, nowMillis))
}

// Capture runs the frame capture workflow. Individual frames that fail to
// capture or upload are skipped and logged while the batch continues; the
// run only fails outright when the source cannot be loaded at all or the
// merged library cannot be persisted.
func (s *Service) Capture(ctx context.Context, input CaptureInput) (*CaptureResult, error) {
	startTime := time.Now()

	proj, err := s.store.Get(ctx, input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	parsed := make([]media.Timestamp, 0, len(input.Timestamps))
	for _, raw := range input.Timestamps {
		ts, err := media.ParseTimestamp(raw)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, ts)
	}

	batch := frame.NewBatch(parsed, input.Quality)
	requested := len(batch.Timestamps)

	var duration float64
	if proj.Metadata != nil && proj.Metadata.Chunking != nil {
		duration = proj.Metadata.Chunking.TotalDuration
	}
	batch, dropped := batch.WithinDuration(duration)
	if dropped > 0 {
		s.logger.Warn("dropped timestamps beyond video duration",
			"project", proj.ID, "count", dropped, "duration", duration)
		fmt.Fprintf(s.output, "Dropped %d timestamp(s) beyond the video duration\n", dropped)
	}
	if len(batch.Timestamps) == 0 {
		return nil, fmt.Errorf("no timestamps to capture")
	}

	fmt.Fprintf(s.output, "Project: %s (%s)\n", proj.Title, proj.ID)
	fmt.Fprintf(s.output, "Frames:  %d\n\n", len(batch.Timestamps))

	// Step 1: Resolve a seekable local source
	fmt.Fprintf(s.output, "[1/3] Preparing video source...\n")
	source, cleanup, err := s.resolveSource(ctx, proj, input.SourcePath)
	if err != nil {
		s.logger.Error("stage failed", "stage", "source", "project", proj.ID, "error", err)
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	fmt.Fprintf(s.output, "      Source: %s\n\n", source)

	// Step 2: Sample the frames
	fmt.Fprintf(s.output, "[2/3] Capturing frames...\n")
	captures, err := s.sampleFrames(ctx, proj.ID, source, batch)
	if err != nil {
		s.logger.Error("stage failed", "stage", "capture", "project", proj.ID, "error", err)
		return nil, err
	}
	fmt.Fprintf(s.output, "      Captured %d of %d\n\n", len(captures), len(batch.Timestamps))

	// Step 3: Upload images, merge and persist the library
	fmt.Fprintf(s.output, "[3/3] Saving frame library...\n")
	merged, stored, err := s.mergeAndPersist(ctx, proj, captures)
	if err != nil {
		s.logger.Error("stage failed", "stage", "persist", "project", proj.ID, "error", err)
		return nil, err
	}
	fmt.Fprintf(s.output, "      Library now holds %d frame(s)\n\n", merged.Len())

	elapsed := time.Since(startTime)
	fmt.Fprintf(s.output, "Done! Captured %d frame(s) in %s\n", stored, formatDuration(elapsed))

	return &CaptureResult{
		Requested:   requested,
		Dropped:     dropped,
		Captured:    stored,
		Skipped:     len(batch.Timestamps) - stored,
		LibrarySize: merged.Len(),
		Elapsed:     elapsed,
	}, nil
}

// resolveSource returns a local file path for the sampler. When no local
// path is given, the project's source video is downloaded and staged.
func (s *Service) resolveSource(ctx context.Context, proj *project.Project, localPath string) (string, func(), error) {
	if localPath != "" {
		return localPath, nil, nil
	}

	data, err := chunking.NewDownloader(s.gateway, s.client).Download(ctx, proj.SourceVideoPath)
	if err != nil {
		return "", nil, err
	}

	path, cleanup, err := s.stager.Stage(proj.ID+".mp4", data)
	if err != nil {
		return "", nil, fmt.Errorf("staging video: %w", err)
	}
	return path, cleanup, nil
}

func (s *Service) sampleFrames(ctx context.Context, projectID, source string, batch frame.Batch) ([]frame.Capture, error) {
	total := len(batch.Timestamps)
	opID := s.tracker.Add(operations.Spec{
		Type:    operations.TypeFrameCapture,
		Message: fmt.Sprintf("Capturing %d frames", total),
		Details: map[string]string{"project": projectID},
	})
	running := operations.StatusRunning
	s.tracker.Update(opID, operations.Patch{Status: &running})

	report := func(completed, totalFrames int) {
		progress := completed * 100 / totalFrames
		s.tracker.Update(opID, operations.Patch{Progress: &progress})
		fmt.Fprintf(s.output, "      Frame %d/%d\n", completed, totalFrames)
	}

	captures, err := s.sampler.Sample(ctx, source, batch, report)
	if err != nil {
		s.tracker.Complete(opID, false, err.Error())
		return nil, err
	}

	s.tracker.Complete(opID, true, fmt.Sprintf("%d of %d frames captured", len(captures), total))
	return captures, nil
}

// mergeAndPersist uploads each captured image, merges the resulting frame
// records into the library and persists the full set. Upload failures skip
// that frame, consistent with the capture stage's partial-success policy.
func (s *Service) mergeAndPersist(ctx context.Context, proj *project.Project, captures []frame.Capture) (frame.Library, int, error) {
	nowMillis := time.Now().UnixMilli()
	opts := storage.UploadOptions{
		ContentType:  "image/jpeg",
		CacheControl: "3600",
		Upsert:       true,
	}

	incoming := make([]frame.ExtractedFrame, 0, len(captures))
	for _, c := range captures {
		ts := c.Timestamp.String()
		imagePath := FrameObjectPath(proj.ID, ts, nowMillis)
		if err := s.gateway.Upload(ctx, imagePath, c.Image, opts); err != nil {
			s.logger.Warn("frame image upload failed, skipping frame",
				"project", proj.ID, "timestamp", ts, "error", err)
			fmt.Fprintf(s.output, "      Frame at %s skipped: %v\n", ts, err)
			continue
		}
		incoming = append(incoming, frame.ExtractedFrame{
			Timestamp: ts,
			ImageRef:  imagePath,
			Width:     c.Width,
			Height:    c.Height,
		})
	}

	merged := frame.Merge(proj.Library(), incoming, nowMillis)
	if err := s.store.ReplaceFrames(ctx, proj.ID, merged.Frames()); err != nil {
		return frame.Library{}, 0, err
	}

	return merged, len(incoming), nil
}

// Remove deletes one frame from the project's library and persists the
// remaining set wholesale
func (s *Service) Remove(ctx context.Context, projectID, frameID string) error {
	return Remove(ctx, s.store, s.logger, projectID, frameID)
}

// Remove deletes one frame from the project's library and persists the
// remaining set wholesale. It needs only the store, so callers that never
// sample can use it without assembling a full Service.
func Remove(ctx context.Context, store project.Store, logger *slog.Logger, projectID, frameID string) error {
	proj, err := store.Get(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}

	trimmed, found := proj.Library().Without(frameID)
	if !found {
		return fmt.Errorf("frame %q not found in project %s", frameID, projectID)
	}

	if err := store.ReplaceFrames(ctx, projectID, trimmed.Frames()); err != nil {
		return err
	}

	logger.Info("frame removed", "project", projectID, "frame", frameID)
	return nil
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
