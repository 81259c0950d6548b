package classifier

import (
	"context"
	"strings"

	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
)

// NameStrategy classifies by case-insensitive keyword and extension rules
// applied to the filename. First matching rule wins.
type NameStrategy struct {
	rules  []models.CategoryRule
	logger logging.Logger
}

// NewNameStrategy creates a NameStrategy over an ordered rule table.
func NewNameStrategy(rules []models.CategoryRule, logger logging.Logger) *NameStrategy {
	return &NameStrategy{rules: rules, logger: logger}
}

// Name returns the name of this strategy for logging and debugging.
func (s *NameStrategy) Name() string {
	return "Filename"
}

// Classify matches the filename against the rule table.
func (s *NameStrategy) Classify(_ context.Context, doc models.Document, _ models.CompanyContext) (models.Classification, bool, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return models.Classification{}, false, nil
	}

	lower, ext := doc.LowerName(), doc.Ext()
	for _, rule := range s.rules {
		if !rule.Matches(lower, ext) {
			continue
		}

		reason := "keywords " + strings.Join(rule.AllOf, "+")
		if len(rule.AllOf) == 0 {
			reason = "extension " + ext
		}
		s.logger.Debug("Document classified by filename",
			logging.F(logging.FieldStrategy, s.Name()),
			logging.F(logging.FieldFile, doc.Name),
			logging.F(logging.FieldCategory, rule.Category),
			logging.F(logging.FieldReason, reason))

		return models.Classification{
			Category: rule.Category,
			Strategy: s.Name(),
			Reason:   reason,
		}, true, nil
	}

	return models.Classification{}, false, nil
}
