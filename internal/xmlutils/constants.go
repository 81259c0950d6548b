package xmlutils

// FiscalPaths groups the XPath expressions used to inspect Brazilian fiscal XML.
// xmlpath matches local names, so the portalfiscal namespaces need no prefix.
type FiscalPaths struct {
	// ModelCode is the "mod" field inside the identification block.
	ModelCode string
	// ModelCodeAnywhere is the fallback when the identification block is absent.
	ModelCodeAnywhere string
	// EventDescriptions hold the human description of an event (cancellation, ...).
	EventDescriptions []string
}

// Fiscal is the default set of expressions.
var Fiscal = FiscalPaths{
	ModelCode:         "//ide/mod",
	ModelCodeAnywhere: "//mod",
	EventDescriptions: []string{
		"//descEvento",
		"//xEvento",
	},
}

// Model codes carried by the "mod" element.
const (
	ModelNFe  = "55"
	ModelNFCe = "65"
	ModelCTe  = "57"
)
