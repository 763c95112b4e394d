package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/operations"

	"github.com/spf13/cobra"
)

var operationsActiveOnly bool

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "Show the operations tracked in this process",
	Long: `Show the progress records of the operations this process has run,
newest first. The ledger is in-memory and bounded, so only the most
recent operations of the current invocation appear.

Example:
  slideforge operations
  slideforge operations --active`,
	RunE: runOperations,
}

func init() {
	rootCmd.AddCommand(operationsCmd)
	operationsCmd.Flags().BoolVar(&operationsActiveOnly, "active", false, "Only show pending and running operations")
}

func runOperations(cmd *cobra.Command, args []string) error {
	return RunOperationsWithDependencies(tracker, operationsActiveOnly, os.Stdout)
}

// RunOperationsWithDependencies runs the operations command with injected
// dependencies (for testing)
func RunOperationsWithDependencies(t *operations.Tracker, activeOnly bool, output io.Writer) error {
	ops := t.Recent()
	if activeOnly {
		ops = t.Active()
	}

	if len(ops) == 0 {
		if activeOnly {
			fmt.Fprintln(output, "No active operations.")
		} else {
			fmt.Fprintln(output, "No operations recorded in this session.")
		}
		return nil
	}

	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		rows = append(rows, []string{
			string(op.Type),
			string(op.Status),
			strconv.Itoa(op.Progress) + "%",
			op.Message,
			op.Timestamp.Local().Format("15:04:05"),
		})
	}

	fmt.Fprintln(output, renderTable(
		[]string{"TYPE", "STATUS", "PROGRESS", "MESSAGE", "STARTED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
