// Package organize runs a batch: classify every input, lay the documents
// out by category and write one ZIP archive for the company.
package organize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/fiscal-organizer/cmd/root"
	"fjacquet/fiscal-organizer/internal/batch"
	"fjacquet/fiscal-organizer/internal/fileutils"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/organizer"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	// Quiet disables the progress spinner.
	Quiet bool
	// Batch treats the single argument as a root whose subdirectories are companies.
	Batch bool
)

// Cmd represents the organize command
var Cmd = &cobra.Command{
	Use:   "organize FILE|DIR...",
	Short: "Organize fiscal documents into a category ZIP",
	Long: `Organize classifies every file (ZIP archives are expanded), places it under
<company>/<CATEGORY>/ and writes <company>.zip. Use --output for a target
directory or an explicit .zip path.

With --batch, the single argument is a root folder: every subdirectory is
organized as its own company (CNPJ from the company directory) and one
archive per company is written into --output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: organizeFunc,
}

func init() {
	Cmd.Flags().BoolVarP(&Quiet, "quiet", "q", false, "Do not show progress")
	Cmd.Flags().BoolVarP(&Batch, "batch", "b", false, "Organize every company subdirectory of the argument")
}

func organizeFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Container()
	if err != nil {
		return err
	}

	var extra []organizer.Observer
	if !Quiet {
		bar := newProgressBar(cmd.ErrOrStderr())
		defer func() { _ = bar.Finish() }()
		extra = append(extra, ProgressObserver(bar))
	}

	org := c.NewOrganizer(extra...)
	if Batch {
		return runBatch(cmd, org, args)
	}

	docs, err := fileutils.CollectDocuments(args)
	if err != nil {
		return err
	}

	result, err := org.Organize(cmd.Context(), docs, root.CompanyInput())
	if err != nil {
		return err
	}

	target := OutputPath(root.SharedFlags.Output, result.ArchiveName)
	if err := fileutils.WriteFile(target, result.Archive, models.PermissionReportFile); err != nil {
		return err
	}
	root.Log.Info("Archive written",
		logging.F(logging.FieldPath, target),
		logging.F(logging.FieldRunID, result.RunID))

	return PrintSummary(cmd.OutOrStdout(), target, result)
}

func runBatch(cmd *cobra.Command, org batch.Organizer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("--batch expects exactly one root directory, got %d arguments", len(args))
	}
	outputDir := root.SharedFlags.Output
	if outputDir == "" {
		outputDir = "."
	}

	agg := batch.NewAggregator(root.Log)
	groups, err := agg.GroupByCompany(args[0])
	if err != nil {
		return err
	}
	outcomes, err := agg.Run(cmd.Context(), org, groups, outputDir)
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED: %v\n", o.Company, o.Err)
			continue
		}
		if err := PrintSummary(cmd.OutOrStdout(), o.Archive, o.Result); err != nil {
			return err
		}
	}
	if failed := batch.Failed(outcomes); len(failed) > 0 {
		return fmt.Errorf("%d of %d companies failed", len(failed), len(outcomes))
	}
	return nil
}

// OutputPath resolves --output: empty means the current directory, a path
// ending in .zip is used as is, anything else is a directory.
func OutputPath(output, archiveName string) string {
	switch {
	case output == "":
		return archiveName
	case strings.EqualFold(filepath.Ext(output), models.ExtZIP):
		return output
	default:
		return filepath.Join(output, archiveName)
	}
}

// PrintSummary writes per-category counts and the skipped documents.
func PrintSummary(w io.Writer, target string, result *organizer.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Archive: %s (%d bytes)\n", target, len(result.Archive))
	fmt.Fprintf(&b, "Status:  %s\n", result.Record.Status)

	counts := result.Record.CategoryCounts()
	for _, cat := range models.AllCategories {
		if n := counts[cat]; n > 0 {
			fmt.Fprintf(&b, "  %-14s %d\n", cat, n)
		}
	}
	for _, name := range result.Unreadable {
		fmt.Fprintf(&b, "Unreadable: %s\n", name)
	}
	for _, name := range result.Conflicts {
		fmt.Fprintf(&b, "Conflict:   %s\n", name)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ProgressObserver ticks the bar once per handled document.
func ProgressObserver(bar *progressbar.ProgressBar) organizer.Observer {
	return organizer.ObserverFuncs{
		Document: func(outcome models.DocumentOutcome) {
			bar.Describe(outcome.Name)
			_ = bar.Add(1)
		},
	}
}

func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("Organizing documents..."),
		progressbar.OptionClearOnFinish(),
	)
}
