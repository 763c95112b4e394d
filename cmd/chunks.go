package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/chunking"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"

	"github.com/spf13/cobra"
)

var chunksStatusProjectID string

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Inspect a project's prepared audio chunks",
}

var chunksStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare a project's chunk records against storage",
	Long: `Compare the chunks recorded on a project against the objects actually
stored under its chunk directory. Nothing is changed; the report shows
which chunks are uploaded, which are missing, and which stored objects
no record claims.

Example:
  slideforge chunks status --project 8f14e45f`,
	RunE: runChunksStatus,
}

func init() {
	rootCmd.AddCommand(chunksCmd)
	chunksCmd.AddCommand(chunksStatusCmd)

	chunksStatusCmd.Flags().StringVar(&chunksStatusProjectID, "project", "", "Project id (required)")
	chunksStatusCmd.MarkFlagRequired("project")
}

func runChunksStatus(cmd *cobra.Command, args []string) error {
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

	return RunChunksStatusWithDependencies(ctx, gateway, store, chunksStatusProjectID, os.Stdout)
}

// RunChunksStatusWithDependencies runs the chunks status command with
// injected dependencies (for testing)
func RunChunksStatusWithDependencies(ctx context.Context, gateway storage.Gateway, store project.Store, projectID string, output io.Writer) error {
	proj, err := store.Get(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}

	if proj.Metadata == nil || proj.Metadata.Chunking == nil || len(proj.Metadata.Chunking.Chunks) == 0 {
		fmt.Fprintln(output, "No chunks prepared for this project. Run 'slideforge prepare-chunks' first.")
		return nil
	}
	meta := proj.Metadata.Chunking

	report, err := chunking.Reconcile(ctx, store, gateway, projectID)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Project: %s (%s)\n", proj.Title, proj.ID)
	fmt.Fprintf(output, "Status:  %s\n", meta.Status)
	if meta.TotalDuration > 0 {
		fmt.Fprintf(output, "Length:  %s\n", media.TimestampFromSeconds(int(meta.TotalDuration)))
	}
	fmt.Fprintln(output)

	uploaded := make(map[int]storage.ObjectInfo, len(report.Matched))
	for _, m := range report.Matched {
		uploaded[m.Chunk.Index] = m.Object
	}

	rows := make([][]string, 0, len(meta.Chunks))
	for _, c := range meta.Chunks {
		remote, size := "MISSING", "-"
		if obj, ok := uploaded[c.Index]; ok {
			remote = "yes"
			size = formatBytes(obj.Size)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			fmt.Sprintf("%s - %s", media.TimestampFromSeconds(int(c.StartTime)), media.TimestampFromSeconds(int(c.EndTime))),
			string(c.Status),
			remote,
			size,
		})
	}

	fmt.Fprintln(output, renderTable(
		[]string{"INDEX", "RANGE", "STATUS", "REMOTE", "SIZE"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	))

	fmt.Fprintf(output, "%d chunk(s) planned, %d uploaded, %d missing\n",
		report.Expected, len(report.Matched), len(report.Missing))

	if len(report.Orphaned) > 0 {
		fmt.Fprintf(output, "\nStored but not recorded on the project:\n")
		for _, obj := range report.Orphaned {
			fmt.Fprintf(output, "  %s (%s)\n", obj.Name, formatBytes(obj.Size))
		}
	}

	return nil
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
