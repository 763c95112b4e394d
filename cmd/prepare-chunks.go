package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/chunking"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/ffmpeg"

	"github.com/spf13/cobra"
)

var (
	prepareProjectID      string
	prepareSourcePath     string
	prepareChunkSeconds   float64
	prepareOverlapSeconds float64
	prepareBitrate        string
)

var prepareChunksCmd = &cobra.Command{
	Use:   "prepare-chunks",
	Short: "Split a project's audio into overlapping chunks and upload them",
	Long: `Prepare a project's source video for transcription:
1. Download the source video from storage
2. Extract the audio track as MP3
3. Plan overlapping chunks over the audio duration
4. Upload every chunk and record the outcome on the project

Chunk planning is deterministic: each chunk starts where the previous one
ends minus the overlap, and the last chunk ends exactly at the audio's
duration. A failed upload aborts the run but the error names every failed
chunk index; chunks uploaded before the failure stay in storage.

Example:
  slideforge prepare-chunks --project 8f14e45f

  slideforge prepare-chunks \
    --project 8f14e45f \
    --chunk-seconds 60 \
    --overlap-seconds 20`,
	RunE: runPrepareChunks,
}

func init() {
	rootCmd.AddCommand(prepareChunksCmd)
	prepareChunksCmd.Flags().StringVar(&prepareProjectID, "project", "", "Project id (required)")
	prepareChunksCmd.Flags().StringVar(&prepareSourcePath, "source", "", "Storage path override (defaults to the project's source video)")
	prepareChunksCmd.Flags().Float64Var(&prepareChunkSeconds, "chunk-seconds", 0, "Chunk length in seconds (defaults to the config, then 60)")
	prepareChunksCmd.Flags().Float64Var(&prepareOverlapSeconds, "overlap-seconds", 0, "Overlap between chunks in seconds (defaults to the config, then 20)")
	prepareChunksCmd.Flags().StringVar(&prepareBitrate, "bitrate", "", "Audio bitrate for extraction (defaults to the config, then 192k)")

	prepareChunksCmd.MarkFlagRequired("project")
}

func runPrepareChunks(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}

	ctx := cmd.Context()

	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	input := chunking.Input{
		ProjectID:      prepareProjectID,
		SourcePath:     prepareSourcePath,
		ChunkSeconds:   prepareChunkSeconds,
		OverlapSeconds: prepareOverlapSeconds,
		Bitrate:        prepareBitrate,
	}
	if input.ChunkSeconds == 0 && input.OverlapSeconds == 0 {
		input.ChunkSeconds = cfg.Chunking.ChunkSeconds
		input.OverlapSeconds = cfg.Chunking.OverlapSeconds
	}
	if input.Bitrate == "" {
		input.Bitrate = cfg.Chunking.AudioBitrate
	}

	return RunPrepareChunksWithDependencies(
		ctx,
		cfg,
		gateway,
		ffmpeg.NewExtractor(),
		ffmpeg.NewProber(),
		store,
		input,
		os.Stdout,
	)
}

// RunPrepareChunksWithDependencies runs the prepare-chunks command with
// injected dependencies (for testing)
func RunPrepareChunksWithDependencies(
	ctx context.Context,
	cfg *config.Config,
	gateway storage.Gateway,
	extractor media.AudioExtractor,
	prober media.DurationProber,
	store project.Store,
	input chunking.Input,
	output io.Writer,
) error {
	// Verify ffmpeg and ffprobe are available
	if err := verifyTool(ctx, extractor); err != nil {
		return fmt.Errorf("ffmpeg verification failed: %w", err)
	}
	if err := verifyTool(ctx, prober); err != nil {
		return fmt.Errorf("ffprobe verification failed: %w", err)
	}

	service := chunking.NewService(
		gateway,
		extractor,
		prober,
		store,
		tracker,
		newHTTPClient(cfg),
		GetLogger(),
		output,
	)

	_, err := service.Prepare(ctx, input)
	return err
}
