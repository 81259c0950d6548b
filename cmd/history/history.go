// Package history inspects and exports the run history.
package history

import (
	"fmt"
	"io"
	"os"
	"strings"

	"fjacquet/fiscal-organizer/cmd/root"
	"fjacquet/fiscal-organizer/internal/container"
	"fjacquet/fiscal-organizer/internal/fileutils"
	runhistory "fjacquet/fiscal-organizer/internal/history"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/report"
	"fjacquet/fiscal-organizer/internal/validation"

	"github.com/spf13/cobra"
)

var (
	// ListLimit caps the number of runs listed; 0 means all.
	ListLimit int
	// ExportLimit caps the number of runs exported; 0 means all.
	ExportLimit int
	// Format selects the export format.
	Format string
)

// Cmd represents the history command
var Cmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past organize runs",
	Long:  `Inspect past organize runs recorded in the SQLite history database.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// ListCmd prints one line per run, newest first.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Long:  `List recent runs, newest first, with status and per-category counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}
		runs, err := store.List(cmd.Context(), ListLimit)
		if err != nil {
			return err
		}
		return WriteRuns(cmd.OutOrStdout(), runs)
	},
}

// ExportCmd renders the history as json, yaml or xlsx.
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs as json, yaml or xlsx",
	Long:  `Export runs as json, yaml or xlsx. Without --output the report goes to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validation.IsValidReportFormat(Format); err != nil {
			return err
		}
		c, err := root.Container()
		if err != nil {
			return err
		}
		store, err := historyStore()
		if err != nil {
			return err
		}
		runs, err := store.List(cmd.Context(), ExportLimit)
		if err != nil {
			return err
		}
		data, err := c.GetReportGenerator().Generate(runs, Format)
		if err != nil {
			return err
		}

		if root.SharedFlags.Output == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := fileutils.WriteFile(root.SharedFlags.Output, data, models.PermissionReportFile); err != nil {
			return err
		}
		root.Log.Info("History exported",
			logging.F(logging.FieldPath, root.SharedFlags.Output),
			logging.F(logging.FieldCount, len(runs)))
		return nil
	},
}

func init() {
	ListCmd.Flags().IntVarP(&ListLimit, "limit", "l", 20, "Maximum number of runs (0 for all)")
	ExportCmd.Flags().IntVarP(&ExportLimit, "limit", "l", 0, "Maximum number of runs (0 for all)")
	ExportCmd.Flags().StringVarP(&Format, "format", "f", report.FormatJSON, "Report format: json, yaml or xlsx")
	Cmd.AddCommand(ListCmd, ExportCmd)
}

func historyStore() (runhistory.Store, error) {
	c, err := root.Container()
	if err != nil {
		return nil, err
	}
	return storeOf(c)
}

func storeOf(c *container.Container) (runhistory.Store, error) {
	store := c.GetHistory()
	if store == nil {
		return nil, fmt.Errorf("run history is disabled (history.enabled=false)")
	}
	return store, nil
}

// WriteRuns prints a compact listing of runs.
func WriteRuns(w io.Writer, runs []models.RunRecord) error {
	if w == nil {
		w = os.Stdout
	}
	if len(runs) == 0 {
		_, err := io.WriteString(w, "No runs recorded.\n")
		return err
	}
	var b strings.Builder
	for _, run := range runs {
		fmt.Fprintf(&b, "%s  %s  %-9s %-20s %3d docs",
			run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.Status, run.Company, len(run.Documents))
		if failed := run.FailedDocuments(); len(failed) > 0 {
			fmt.Fprintf(&b, "  skipped: %s", strings.Join(failed, ", "))
		}
		if run.Error != "" {
			fmt.Fprintf(&b, "  error: %s", run.Error)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
