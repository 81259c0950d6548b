// Package models provides the data structures used throughout the application.
package models

import "strings"

// Category is a fiscal category label. It doubles as the output folder name.
type Category string

// Fiscal categories, in no particular order. Resolution order lives in the classifier.
const (
	CategoryNFeEntrada   Category = "NFE_ENTRADA"
	CategoryNFeSaida     Category = "NFE_SAIDA"
	CategoryNFCeSaida    Category = "NFCE_SAIDA"
	CategoryCTeEntrada   Category = "CTE_ENTRADA"
	CategoryCTeSaida     Category = "CTE_SAIDA"
	CategoryCTeCancelada Category = "CTE_CANCELADA"
	CategorySPED         Category = "SPED"
	CategoryNFSTomados   Category = "NFS_TOMADOS"
	CategoryNFSPrestado  Category = "NFS_PRESTADO"
	CategoryPlanilha     Category = "PLANILHA"
	CategoryTXT          Category = "TXT"
	CategoryOutros       Category = "OUTROS"
)

// AllCategories lists every category label in declaration order.
var AllCategories = []Category{
	CategoryNFeEntrada,
	CategoryNFeSaida,
	CategoryNFCeSaida,
	CategoryCTeEntrada,
	CategoryCTeSaida,
	CategoryCTeCancelada,
	CategorySPED,
	CategoryNFSTomados,
	CategoryNFSPrestado,
	CategoryPlanilha,
	CategoryTXT,
	CategoryOutros,
}

// ParseCategory converts a label (case-insensitive) into a Category.
// Unknown labels are reported with ok == false.
func ParseCategory(label string) (Category, bool) {
	wanted := Category(strings.ToUpper(strings.TrimSpace(label)))
	for _, c := range AllCategories {
		if c == wanted {
			return c, true
		}
	}
	return CategoryOutros, false
}

// Family is the fiscal document family a category belongs to.
type Family string

// Document families recognised from model codes and root tags.
const (
	FamilyNone Family = ""
	FamilyNFe  Family = "NFE"
	FamilyNFCe Family = "NFCE"
	FamilyCTe  Family = "CTE"
	FamilyNFS  Family = "NFS"
)

// Direction is the subcategory of a directional category.
type Direction string

// Directions relative to the owning company.
const (
	DirectionNone      Direction = ""
	DirectionEntrada   Direction = "ENTRADA"
	DirectionSaida     Direction = "SAIDA"
	DirectionCancelada Direction = "CANCELADA"
)

// Family returns the document family of c, or FamilyNone for
// non-directional categories such as SPED or PLANILHA.
func (c Category) Family() Family {
	switch c {
	case CategoryNFeEntrada, CategoryNFeSaida:
		return FamilyNFe
	case CategoryNFCeSaida:
		return FamilyNFCe
	case CategoryCTeEntrada, CategoryCTeSaida, CategoryCTeCancelada:
		return FamilyCTe
	case CategoryNFSTomados, CategoryNFSPrestado:
		return FamilyNFS
	default:
		return FamilyNone
	}
}

// Direction returns the subcategory carried by NFE and CTE categories.
func (c Category) Direction() Direction {
	switch c {
	case CategoryNFeEntrada, CategoryCTeEntrada:
		return DirectionEntrada
	case CategoryNFeSaida, CategoryCTeSaida, CategoryNFCeSaida:
		return DirectionSaida
	case CategoryCTeCancelada:
		return DirectionCancelada
	default:
		return DirectionNone
	}
}

// Classification is the outcome of classifying one document.
type Classification struct {
	Category Category
	// Strategy names the resolution step that produced Category.
	Strategy string
	// Reason is a short human-readable trace (matched keyword, tax id side, ...).
	Reason string
}

// Subcategory returns the direction of the classified category, if any.
func (c Classification) Subcategory() Direction {
	return c.Category.Direction()
}
