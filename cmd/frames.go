package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/frames"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"

	"github.com/spf13/cobra"
)

var (
	framesListProjectID   string
	framesRemoveProjectID string
)

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Inspect and prune a project's frame library",
	Long: `Inspect and prune a project's frame library.

Example:
  slideforge frames list --project 8f14e45f

  slideforge frames remove --project 8f14e45f frame-00-01-30-1718038500000`,
}

var framesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the captured frames of a project",
	RunE:  runFramesList,
}

var framesRemoveCmd = &cobra.Command{
	Use:   "remove <frame-id>...",
	Short: "Remove frames from a project's library",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFramesRemove,
}

func init() {
	rootCmd.AddCommand(framesCmd)
	framesCmd.AddCommand(framesListCmd)
	framesCmd.AddCommand(framesRemoveCmd)

	framesListCmd.Flags().StringVar(&framesListProjectID, "project", "", "Project id (required)")
	framesListCmd.MarkFlagRequired("project")

	framesRemoveCmd.Flags().StringVar(&framesRemoveProjectID, "project", "", "Project id (required)")
	framesRemoveCmd.MarkFlagRequired("project")
}

func runFramesList(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return RunFramesListWithDependencies(cmd.Context(), store, framesListProjectID, os.Stdout)
}

// RunFramesListWithDependencies runs the frames list command with injected
// dependencies (for testing)
func RunFramesListWithDependencies(ctx context.Context, store project.Store, projectID string, output io.Writer) error {
	proj, err := store.Get(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}

	library := proj.Library()
	if library.Len() == 0 {
		fmt.Fprintln(output, "No frames captured. Run 'slideforge capture-frames' to add some.")
		return nil
	}

	headers := []string{"ID", "TIMESTAMP", "DIMENSIONS", "IMAGE"}
	rows := make([][]string, 0, library.Len())
	for _, f := range library.Frames() {
		rows = append(rows, []string{
			f.ID,
			f.Timestamp,
			fmt.Sprintf("%dx%d", f.Width, f.Height),
			f.ImageRef,
		})
	}

	fmt.Fprintln(output, renderTable(headers, rows, nil))
	fmt.Fprintf(output, "%d frame(s)\n", library.Len())
	return nil
}

func runFramesRemove(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return RunFramesRemoveWithDependencies(cmd.Context(), store, framesRemoveProjectID, args, os.Stdout)
}

// RunFramesRemoveWithDependencies runs the frames remove command with
// injected dependencies (for testing)
func RunFramesRemoveWithDependencies(ctx context.Context, store project.Store, projectID string, frameIDs []string, output io.Writer) error {
	for _, frameID := range frameIDs {
		if err := frames.Remove(ctx, store, GetLogger(), projectID, frameID); err != nil {
			return err
		}
		fmt.Fprintf(output, "Removed %s\n", frameID)
	}

	proj, err := store.Get(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	fmt.Fprintf(output, "%d frame(s) remain\n", proj.Library().Len())
	return nil
}
