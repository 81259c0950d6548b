// Package report renders the run history for export.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
)

// Sheet names of the XLSX export.
const (
	SheetRuns      = "Runs"
	SheetDocuments = "Documents"
)

var (
	runHeaders      = []interface{}{"Run ID", "Started", "Finished", "Company", "CNPJ", "Status", "Documents", "Unreadable", "Archive bytes", "Error"}
	documentHeaders = []interface{}{"Run ID", "Document", "Source", "Category", "Path", "Error"}
)

// Generator renders run records in the supported formats.
type Generator struct {
	logger logging.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Generator{logger: logger.WithField(logging.FieldComponent, "report")}
}

// ContentType returns the MIME type of a rendered format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Generate renders runs as json, yaml or xlsx.
func (g *Generator) Generate(runs []models.RunRecord, format string) ([]byte, error) {
	if runs == nil {
		runs = []models.RunRecord{}
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		return g.generateJSON(runs)
	case FormatYAML:
		return g.generateYAML(runs)
	case FormatXLSX:
		return g.generateXLSX(runs)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) generateJSON(runs []models.RunRecord) ([]byte, error) {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return data, nil
}

func (g *Generator) generateYAML(runs []models.RunRecord) ([]byte, error) {
	data, err := yaml.Marshal(runs)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return nil, fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	return data, nil
}

// generateXLSX writes one row per run and one row per document outcome.
func (g *Generator) generateXLSX(runs []models.RunRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetRuns); err != nil {
		return nil, fmt.Errorf("failed to name runs sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetDocuments); err != nil {
		return nil, fmt.Errorf("failed to create documents sheet: %w", err)
	}

	if err := writeRow(f, SheetRuns, 1, runHeaders); err != nil {
		return nil, err
	}
	if err := writeRow(f, SheetDocuments, 1, documentHeaders); err != nil {
		return nil, err
	}

	docRow := 2
	for i, run := range runs {
		row := []interface{}{
			run.ID,
			formatTime(run.StartedAt),
			formatTime(run.FinishedAt),
			run.Company,
			run.TaxID,
			run.Status,
			len(run.Documents),
			len(run.FailedDocuments()),
			run.ArchiveSize,
			run.Error,
		}
		if err := writeRow(f, SheetRuns, i+2, row); err != nil {
			return nil, err
		}
		for _, d := range run.Documents {
			row := []interface{}{run.ID, d.Name, d.Source, string(d.Category), d.Path, d.Error}
			if err := writeRow(f, SheetDocuments, docRow, row); err != nil {
				return nil, err
			}
			docRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		g.logger.WithError(err).Error("Failed to write XLSX report")
		return nil, fmt.Errorf("failed to write XLSX report: %w", err)
	}
	g.logger.Debug("Generated XLSX report",
		logging.F(logging.FieldCount, len(runs)),
		logging.F("document_rows", docRow-2))
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
