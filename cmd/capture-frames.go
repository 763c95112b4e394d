package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/frames"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var (
	captureProjectID   string
	captureTimestamps  []string
	captureSourcePath  string
	captureInteractive bool
	captureQuality     int
)

var captureFramesCmd = &cobra.Command{
	Use:   "capture-frames",
	Short: "Capture still frames from a project's video at chosen timestamps",
	Long: `Capture still frames at the given timestamps and merge them into the
project's frame library.

Timestamps use HH:MM:SS or MM:SS. Duplicates collapse to one capture and
the batch always runs in ascending timestamp order. Timestamps beyond the
video's known duration are dropped. A frame that fails to extract or
upload is skipped; the rest of the batch still completes.

With --interactive the command prompts for timestamps one at a time.
Press enter on an empty prompt (or Ctrl+C) to stop scheduling; everything
scheduled so far is still captured.

By default the source video is downloaded from storage. Pass --source to
sample a local copy instead and skip the download.

Example:
  slideforge capture-frames --project 8f14e45f --at 00:01:30 --at 00:04:00

  slideforge capture-frames --project 8f14e45f --interactive --source lecture4.mp4`,
	RunE: runCaptureFrames,
}

func init() {
	rootCmd.AddCommand(captureFramesCmd)
	captureFramesCmd.Flags().StringVar(&captureProjectID, "project", "", "Project id (required)")
	captureFramesCmd.Flags().StringArrayVar(&captureTimestamps, "at", nil, "Timestamp to capture, HH:MM:SS or MM:SS (can be repeated)")
	captureFramesCmd.Flags().StringVar(&captureSourcePath, "source", "", "Local copy of the source video (skips the download)")
	captureFramesCmd.Flags().BoolVar(&captureInteractive, "interactive", false, "Prompt for timestamps one at a time")
	captureFramesCmd.Flags().IntVar(&captureQuality, "quality", 0, "JPEG quality 1-100 (defaults to the config, then 95)")

	captureFramesCmd.MarkFlagRequired("project")
}

func runCaptureFrames(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}

	if !captureInteractive && len(captureTimestamps) == 0 {
		return fmt.Errorf("provide at least one --at timestamp or use --interactive")
	}
	if captureSourcePath != "" && !filesystem.NewChecker().Exists(captureSourcePath) {
		return fmt.Errorf("source file not found: %s", captureSourcePath)
	}

	timestamps := captureTimestamps
	if captureInteractive {
		scheduled := collectTimestamps(DefaultPrompter, os.Stdout)
		timestamps = append(timestamps, scheduled...)
		if len(timestamps) == 0 {
			fmt.Println("No timestamps scheduled.")
			return nil
		}
	}

	ctx := cmd.Context()

	sampler, err := newSampler(cfg)
	if err != nil {
		return err
	}

	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	quality := captureQuality
	if quality == 0 {
		quality = cfg.Frames.JPEGQuality
	}

	input := frames.CaptureInput{
		ProjectID:  captureProjectID,
		SourcePath: captureSourcePath,
		Timestamps: timestamps,
		Quality:    quality,
	}

	return RunCaptureFramesWithDependencies(
		ctx,
		cfg,
		sampler,
		gateway,
		store,
		filesystem.NewStaging(cfg.Paths.WorkDir),
		input,
		os.Stdout,
	)
}

// collectTimestamps prompts for timestamps until the picker is closed with
// an empty answer or an interrupt. Whatever was scheduled before closing
// is returned so the capture still runs.
func collectTimestamps(prompter Prompter, out io.Writer) []string {
	fmt.Fprintln(out, "Enter timestamps to capture (HH:MM:SS or MM:SS). Leave empty to finish.")

	var scheduled []string
	for {
		value, err := prompter.Input("Timestamp:", "")
		if err != nil {
			break
		}
		value = strings.TrimSpace(value)
		if value == "" {
			break
		}
		if _, err := media.ParseTimestamp(value); err != nil {
			fmt.Fprintf(out, "  %v\n", err)
			continue
		}
		scheduled = append(scheduled, value)
	}
	return scheduled
}

// RunCaptureFramesWithDependencies runs the capture-frames command with
// injected dependencies (for testing)
func RunCaptureFramesWithDependencies(
	ctx context.Context,
	cfg *config.Config,
	sampler frame.Sampler,
	gateway storage.Gateway,
	store project.Store,
	stager frames.Stager,
	input frames.CaptureInput,
	output io.Writer,
) error {
	// Verify the sampler's tool is available when it can tell us
	if err := verifyTool(ctx, sampler); err != nil {
		return fmt.Errorf("sampler verification failed: %w", err)
	}

	service := frames.NewService(
		sampler,
		gateway,
		store,
		tracker,
		stager,
		newHTTPClient(cfg),
		GetLogger(),
		output,
	)

	_, err := service.Capture(ctx, input)
	return err
}
