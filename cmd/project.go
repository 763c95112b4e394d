package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"

	"github.com/spf13/cobra"
)

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// DefaultOutput is the default output writer for commands
var DefaultOutput OutputWriter = os.Stdout

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long: `Create and inspect the project records that chunking and frame
capture operate on.

Examples:
  slideforge project create --title "Lecture 4" --source uploads/p1/lecture4.mp4
  slideforge project show 8f14e45f
  slideforge project list`,
}

func init() {
	rootCmd.AddCommand(projectCmd)

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectListCmd)
}

// --- CREATE command ---

var (
	projectTitle  string
	projectSource string
)

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	Long: `Create a new project record pointing at an uploaded source video.

The source is a storage path inside the configured bucket, not a local file.

Example:
  slideforge project create --title "Lecture 4" --source uploads/p1/lecture4.mp4`,
	RunE: runProjectCreate,
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectTitle, "title", "", "Project title (required)")
	projectCreateCmd.Flags().StringVar(&projectSource, "source", "", "Storage path of the uploaded source video (required)")
	projectCreateCmd.MarkFlagRequired("title")
	projectCreateCmd.MarkFlagRequired("source")
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return RunProjectCreateWithDependencies(cmd.Context(), store, projectTitle, projectSource, DefaultOutput)
}

// RunProjectCreateWithDependencies runs the create command with injected dependencies
func RunProjectCreateWithDependencies(ctx context.Context, store project.Store, title, source string, out OutputWriter) error {
	p, err := project.NewProject(title, source)
	if err != nil {
		return err
	}
	if err := store.Create(ctx, p); err != nil {
		return err
	}

	fmt.Fprintf(out, "Created project %s\n", p.ID)
	fmt.Fprintf(out, "  Title:  %s\n", p.Title)
	fmt.Fprintf(out, "  Source: %s\n", p.SourceVideoPath)
	return nil
}

// --- SHOW command ---

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show one project's details",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return RunProjectShowWithDependencies(cmd.Context(), store, args[0], DefaultOutput)
}

// RunProjectShowWithDependencies runs the show command with injected dependencies
func RunProjectShowWithDependencies(ctx context.Context, store project.Store, id string, out OutputWriter) error {
	p, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Project %s\n", p.ID)
	fmt.Fprintf(out, "  Title:   %s\n", p.Title)
	fmt.Fprintf(out, "  Source:  %s\n", p.SourceVideoPath)
	fmt.Fprintf(out, "  Created: %s\n", p.CreatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(out, "  Frames:  %d\n", p.Library().Len())

	if p.Metadata != nil && p.Metadata.Chunking != nil {
		c := p.Metadata.Chunking
		fmt.Fprintf(out, "  Chunks:  %d (%s)\n", len(c.Chunks), c.Status)
		if c.TotalDuration > 0 {
			fmt.Fprintf(out, "  Length:  %.0fs\n", c.TotalDuration)
		}
	} else {
		fmt.Fprintf(out, "  Chunks:  none prepared\n")
	}

	if p.Transcript != "" {
		fmt.Fprintf(out, "  Transcript: %d characters\n", len(p.Transcript))
	}
	return nil
}

// --- LIST command ---

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects, newest first",
	RunE:  runProjectList,
}

func runProjectList(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("config file not found. Run 'slideforge setup' first")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return RunProjectListWithDependencies(cmd.Context(), store, DefaultOutput)
}

// RunProjectListWithDependencies runs the list command with injected dependencies
func RunProjectListWithDependencies(ctx context.Context, store project.Store, out OutputWriter) error {
	projects, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects yet. Run 'slideforge project create' to add one.")
		return nil
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		chunks := "-"
		if p.Metadata != nil && p.Metadata.Chunking != nil {
			chunks = strconv.Itoa(len(p.Metadata.Chunking.Chunks))
		}
		rows = append(rows, []string{
			p.ID,
			p.Title,
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
			chunks,
			strconv.Itoa(p.Library().Len()),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"ID", "TITLE", "CREATED", "CHUNKS", "FRAMES"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}
