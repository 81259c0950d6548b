// Package classifier assigns a fiscal category to a document. Resolution
// runs an ordered chain of strategies:
//  1. filename keyword and extension rules
//  2. XML structure (model code, parties, cancellation) for .xml files
//  3. text markers for .txt files, falling back to TXT
//  4. OUTROS
//
// The first strategy that produces a category wins. Classification never
// fails: local errors are logged and treated as a non-match.
package classifier

import (
	"context"

	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
)

// FallbackStrategy is the strategy name reported for OUTROS.
const FallbackStrategy = "Fallback"

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	strategies []Strategy
	rules      []models.CategoryRule
	logger     logging.Logger
}

// New builds a Classifier with the default strategy chain.
func New(opts Options, logger logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	logger = logger.WithField(logging.FieldComponent, "classifier")

	rules := resolveRules(opts)
	return NewWithStrategies(logger,
		NewNameStrategy(rules, logger),
		NewXMLStrategy(logger),
		NewTextStrategy(logger),
	).withRules(rules)
}

// NewWithStrategies builds a Classifier over an explicit strategy chain.
func NewWithStrategies(logger logging.Logger, strategies ...Strategy) *Classifier {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Classifier{
		strategies: append([]Strategy(nil), strategies...),
		logger:     logger,
	}
}

func (c *Classifier) withRules(rules []models.CategoryRule) *Classifier {
	c.rules = rules
	return c
}

// Rules returns a copy of the filename rule table in priority order.
func (c *Classifier) Rules() []models.CategoryRule {
	return append([]models.CategoryRule(nil), c.rules...)
}

// Classify returns the category of doc under company.
func (c *Classifier) Classify(ctx context.Context, doc models.Document, company models.CompanyContext) models.Classification {
	for _, s := range c.strategies {
		result, found, err := s.Classify(ctx, doc, company)
		if err != nil {
			c.logger.WithError(err).Debug("Classification step failed, continuing",
				logging.F(logging.FieldStrategy, s.Name()),
				logging.F(logging.FieldFile, doc.Name))
			continue
		}
		if found {
			return result
		}
	}
	return fallback()
}

// Explain runs every strategy and returns all attempts, for tracing why a
// document landed where it did.
func (c *Classifier) Explain(ctx context.Context, doc models.Document, company models.CompanyContext) StrategyResults {
	results := StrategyResults{Document: doc.Name}
	for _, s := range c.strategies {
		cls, found, err := s.Classify(ctx, doc, company)
		results.Results = append(results.Results, StrategyResult{
			Strategy:       s.Name(),
			Classification: cls,
			Found:          found,
			Error:          err,
		})
	}
	return results
}

func fallback() models.Classification {
	return models.Classification{
		Category: models.CategoryOutros,
		Strategy: FallbackStrategy,
		Reason:   "no rule matched",
	}
}
