package classifier

import "fjacquet/fiscal-organizer/internal/models"

// Options tune the classifier. The zero value reproduces the default table.
type Options struct {
	// NFSTomadosRequiresNFSe makes the NFS_TOMADOS filename rule require
	// "nfse" next to "tomado" instead of "tomado" alone.
	NFSTomadosRequiresNFSe bool
	// Rules replaces the built-in filename table when non-empty.
	Rules []models.CategoryRule
}

// DefaultRules returns the built-in filename rule table in priority order.
// TXT is deliberately absent: it is the text strategy's fallback, applied
// after content inspection.
func DefaultRules(opts Options) []models.CategoryRule {
	tomados := []string{"tomado"}
	if opts.NFSTomadosRequiresNFSe {
		tomados = []string{"nfse", "tomado"}
	}

	return []models.CategoryRule{
		{Category: models.CategoryCTeEntrada, AllOf: []string{"cte", "entrada"}},
		{Category: models.CategoryCTeSaida, AllOf: []string{"cte", "saida"}},
		{Category: models.CategoryCTeCancelada, AllOf: []string{"cte", "cancelada"}},
		{Category: models.CategoryNFeEntrada, AllOf: []string{"nfe", "entrada"}},
		{Category: models.CategoryNFeSaida, AllOf: []string{"nfe", "saida"}},
		{Category: models.CategoryNFCeSaida, AllOf: []string{"nfce"}},
		{Category: models.CategorySPED, AllOf: []string{"sped"}},
		{Category: models.CategoryNFSTomados, AllOf: tomados},
		{Category: models.CategoryNFSPrestado, AllOf: []string{"prestado"}},
		{Category: models.CategoryPlanilha, Extensions: []string{models.ExtXLS, models.ExtXLSX}},
	}
}

// MatchName returns the first rule matching the document name.
func MatchName(rules []models.CategoryRule, name string) (models.CategoryRule, bool) {
	doc := models.Document{Name: name}
	lower, ext := doc.LowerName(), doc.Ext()
	for _, r := range rules {
		if r.Matches(lower, ext) {
			return r, true
		}
	}
	return models.CategoryRule{}, false
}

// resolveRules picks the configured table or the default one, normalized and
// copied so callers cannot mutate the classifier's table afterwards.
func resolveRules(opts Options) []models.CategoryRule {
	src := opts.Rules
	if len(src) == 0 {
		src = DefaultRules(opts)
	}
	out := make([]models.CategoryRule, 0, len(src))
	for _, r := range src {
		out = append(out, r.Normalize())
	}
	return out
}
