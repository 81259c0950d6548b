package models

import (
	"fmt"
	"strings"
)

// CategoryRule is one row of the ordered filename rule table.
// A rule matches when every AllOf keyword is a substring of the lowercased
// filename and, if Extensions is set, the extension is one of them.
type CategoryRule struct {
	Category   Category `yaml:"category"`
	AllOf      []string `yaml:"all_of,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
}

// RulesConfig represents the structure of the rules YAML file.
type RulesConfig struct {
	Rules []CategoryRule `yaml:"rules"`
}

// Normalize canonicalizes the category label, lowercases keywords and
// extensions, and ensures extensions carry a dot.
func (r CategoryRule) Normalize() CategoryRule {
	out := CategoryRule{Category: r.Category}
	if c, ok := ParseCategory(string(r.Category)); ok {
		out.Category = c
	}
	for _, k := range r.AllOf {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out.AllOf = append(out.AllOf, k)
		}
	}
	for _, e := range r.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out.Extensions = append(out.Extensions, e)
	}
	return out
}

// Validate rejects rules that could never match or name an unknown category.
func (r CategoryRule) Validate() error {
	if _, ok := ParseCategory(string(r.Category)); !ok {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if len(r.AllOf) == 0 && len(r.Extensions) == 0 {
		return fmt.Errorf("rule for %s has neither keywords nor extensions", r.Category)
	}
	return nil
}

// Matches reports whether the rule applies to an already lowercased name and extension.
func (r CategoryRule) Matches(lowerName, ext string) bool {
	if len(r.AllOf) == 0 && len(r.Extensions) == 0 {
		return false
	}
	for _, k := range r.AllOf {
		if !strings.Contains(lowerName, k) {
			return false
		}
	}
	if len(r.Extensions) == 0 {
		return true
	}
	for _, e := range r.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
