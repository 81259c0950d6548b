package models

import "time"

// DocumentOutcome is the per-document line of a run record.
type DocumentOutcome struct {
	Name     string   `json:"name" yaml:"name"`
	Source   string   `json:"source,omitempty" yaml:"source,omitempty"`
	Category Category `json:"category,omitempty" yaml:"category,omitempty"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunRecord summarises one organize run for the append-only history.
type RunRecord struct {
	ID          string            `json:"id" yaml:"id"`
	StartedAt   time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time         `json:"finished_at" yaml:"finished_at"`
	Company     string            `json:"company" yaml:"company"`
	TaxID       string            `json:"tax_id,omitempty" yaml:"tax_id,omitempty"`
	Status      string            `json:"status" yaml:"status"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
	Documents   []DocumentOutcome `json:"documents" yaml:"documents"`
	ArchiveSize int               `json:"archive_size" yaml:"archive_size"`
}

// CategoryCounts tallies placed documents per category.
func (r RunRecord) CategoryCounts() map[Category]int {
	counts := make(map[Category]int)
	for _, d := range r.Documents {
		if d.Error == "" && d.Category != "" {
			counts[d.Category]++
		}
	}
	return counts
}

// FailedDocuments returns the names of documents that were skipped.
func (r RunRecord) FailedDocuments() []string {
	var names []string
	for _, d := range r.Documents {
		if d.Error != "" {
			names = append(names, d.Name)
		}
	}
	return names
}
