package models

import (
	"strings"
	"unicode"

	"fjacquet/fiscal-organizer/internal/fiscalerror"
)

// CNPJLength is the number of digits in a Brazilian company tax identifier.
const CNPJLength = 14

// CompanyContext is supplied once per run and never mutated.
type CompanyContext struct {
	// Name is the sanitized company name used as the root folder and archive name.
	Name string
	// TaxID is the optional 14-digit CNPJ used to resolve direction.
	TaxID string
}

// NewCompanyContext validates and normalizes the operator input.
// An empty name (after sanitizing) or a malformed CNPJ is a PreconditionError.
func NewCompanyContext(name, taxID string) (CompanyContext, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return CompanyContext{}, &fiscalerror.PreconditionError{
			Field:  "company",
			Reason: "company name is required",
		}
	}

	cnpj := NormalizeCNPJ(taxID)
	if cnpj != "" && !IsValidCNPJFormat(cnpj) {
		return CompanyContext{}, &fiscalerror.PreconditionError{
			Field:  "cnpj",
			Reason: "tax identifier must have exactly 14 digits",
		}
	}

	return CompanyContext{Name: clean, TaxID: cnpj}, nil
}

// HasTaxID reports whether direction can be resolved from content.
func (c CompanyContext) HasTaxID() bool {
	return c.TaxID != ""
}

// SanitizeName removes path separators and other characters that would let a
// company name escape the output root, and trims surrounding dots and spaces.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			b.WriteRune('_')
		case unicode.IsControl(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(strings.TrimSpace(b.String()), ". ")
}

// NormalizeCNPJ strips the usual punctuation ("12.345.678/0001-90") and
// whitespace. Other characters are kept so validation can reject them.
func NormalizeCNPJ(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case '.', '/', '-', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidCNPJFormat reports whether s is exactly 14 ASCII digits.
// Check digits are not verified.
func IsValidCNPJFormat(s string) bool {
	if len(s) != CNPJLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
