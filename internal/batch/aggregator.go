// Package batch organizes several companies in one pass: every
// subdirectory of a root folder is one company's upload set.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/fiscal-organizer/internal/fileutils"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/organizer"
)

// Organizer runs one single-company organize pass.
type Organizer interface {
	Organize(ctx context.Context, docs []models.Document, company models.CompanyContext) (*organizer.Result, error)
}

// CompanyGroup is the set of input files belonging to one company.
type CompanyGroup struct {
	Company string
	Dir     string
}

// Outcome is the result of organizing one CompanyGroup.
type Outcome struct {
	Company string
	Archive string
	Result  *organizer.Result
	Err     error
}

// Aggregator groups company folders and organizes each of them.
type Aggregator struct {
	logger logging.Logger
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Aggregator{logger: logger.WithField(logging.FieldComponent, "batch")}
}

// GroupByCompany lists the immediate, non-hidden subdirectories of root,
// sorted by name. Loose files directly under root belong to no company and
// are ignored.
func (a *Aggregator) GroupByCompany(root string) ([]CompanyGroup, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch root %s: %w", root, err)
	}

	var groups []CompanyGroup
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() {
			a.logger.Warn("Ignoring file outside a company folder", logging.F(logging.FieldFile, name))
			continue
		}
		groups = append(groups, CompanyGroup{Company: name, Dir: filepath.Join(root, name)})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Company < groups[j].Company
	})

	a.logger.Info("Grouped company folders", logging.F(logging.FieldCount, len(groups)))
	return groups, nil
}

// Run organizes every group in order and writes one archive per company into
// outputDir. A failing company is reported in its Outcome and does not stop
// the others; only cancellation does.
func (a *Aggregator) Run(ctx context.Context, org Organizer, groups []CompanyGroup, outputDir string) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("batch aborted: %w", err)
		}
		outcome := a.runOne(ctx, org, g, outputDir)
		if outcome.Err != nil {
			a.logger.WithError(outcome.Err).Warn("Company batch failed", logging.F(logging.FieldCompany, g.Company))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (a *Aggregator) runOne(ctx context.Context, org Organizer, g CompanyGroup, outputDir string) Outcome {
	outcome := Outcome{Company: g.Company}

	docs, err := fileutils.CollectDocuments([]string{g.Dir})
	if err != nil {
		outcome.Err = err
		return outcome
	}

	result, err := org.Organize(ctx, docs, models.CompanyContext{Name: g.Company})
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Result = result

	outcome.Archive = filepath.Join(outputDir, result.ArchiveName)
	if err := fileutils.WriteFile(outcome.Archive, result.Archive, models.PermissionReportFile); err != nil {
		outcome.Err = err
	}
	return outcome
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
