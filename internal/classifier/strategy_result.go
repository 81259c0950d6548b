package classifier

import (
	"fmt"
	"strings"

	"fjacquet/fiscal-organizer/internal/models"
)

// StrategyResult records the outcome of one strategy attempt.
type StrategyResult struct {
	Strategy       string
	Classification models.Classification
	Found          bool
	Error          error
}

// StrategyResults aggregates the attempts made for one document, in resolution order.
type StrategyResults struct {
	Document string
	Results  []StrategyResult
}

// Best returns the classification the classifier would pick: the first
// successful, error-free result, or OUTROS.
func (sr StrategyResults) Best() models.Classification {
	for _, r := range sr.Results {
		if r.Found && r.Error == nil {
			return r.Classification
		}
	}
	return fallback()
}

// Errors returns all errors encountered during strategy execution.
func (sr StrategyResults) Errors() []error {
	var errs []error
	for _, r := range sr.Results {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("%s strategy: %w", r.Strategy, r.Error))
		}
	}
	return errs
}

// Summary returns a human-readable summary of all strategy attempts.
func (sr StrategyResults) Summary() string {
	parts := make([]string, 0, len(sr.Results))
	for _, r := range sr.Results {
		status := "no_match"
		switch {
		case r.Error != nil:
			status = "failed"
		case r.Found:
			status = "match:" + string(r.Classification.Category)
		}
		parts = append(parts, fmt.Sprintf("%s:%s", r.Strategy, status))
	}
	return strings.Join(parts, ", ")
}
