package store

import "fjacquet/fiscal-organizer/internal/models"

// MockRuleStore is a RuleLoader for tests.
type MockRuleStore struct {
	Rules     []models.CategoryRule
	LoadError error
}

// LoadRules returns the configured rules or error.
func (m *MockRuleStore) LoadRules() ([]models.CategoryRule, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return append([]models.CategoryRule(nil), m.Rules...), nil
}
