package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	apptranscription "github.com/tpvfmilk/insight-slide-forge-sub003/application/transcription"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/transcription"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/transcribe"

	"github.com/spf13/cobra"
)

var transcribeProjectID string

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Request a transcript for a project's uploaded chunks",
	Long: `Ask the transcription service to transcribe a project's uploaded audio
chunks and save the transcript on the project record.

The project must have prepared chunks; run 'slideforge prepare-chunks'
first.

Example:
  slideforge transcribe --project 8f14e45f`,
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
	transcribeCmd.Flags().StringVar(&transcribeProjectID, "project", "", "Project id (required)")
	transcribeCmd.MarkFlagRequired("project")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}
	if cfg.Transcription.Endpoint == "" {
		return fmt.Errorf("transcription endpoint not configured. Run 'slideforge setup' or set transcription.endpoint in the config")
	}

	client, err := transcribe.NewClient(cfg.Transcription.Endpoint, transcribe.WithHTTPClient(newHTTPClient(cfg)))
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return RunTranscribeWithDependencies(cmd.Context(), client, store, transcribeProjectID, os.Stdout)
}

// RunTranscribeWithDependencies runs the transcribe command with injected
// dependencies (for testing)
func RunTranscribeWithDependencies(
	ctx context.Context,
	requester transcription.Requester,
	store project.Store,
	projectID string,
	output io.Writer,
) error {
	service := apptranscription.NewService(requester, store, tracker, GetLogger(), output)

	_, err := service.Run(ctx, projectID)
	return err
}
