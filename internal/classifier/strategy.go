package classifier

import (
	"context"

	"fjacquet/fiscal-organizer/internal/models"
)

// Strategy is one step of the resolution order. Each strategy inspects a
// different aspect of the document (name, XML tree, text content).
type Strategy interface {
	// Classify attempts to classify doc under company.
	//
	// Returns:
	//   - models.Classification: the result (only valid if found is true)
	//   - bool: whether this step produced a definitive category
	//   - error: a local failure; the classifier treats it as a non-match
	Classify(ctx context.Context, doc models.Document, company models.CompanyContext) (models.Classification, bool, error)

	// Name returns the name of this strategy for logging and tracing.
	Name() string
}
