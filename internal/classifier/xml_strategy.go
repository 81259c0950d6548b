package classifier

import (
	"context"

	"fjacquet/fiscal-organizer/internal/fiscalerror"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
)

// XMLStrategy classifies .xml documents from their element tree: document
// family from the model code (or root tag), direction from comparing the
// company CNPJ with the sender and recipient CNPJs.
type XMLStrategy struct {
	logger logging.Logger
}

// NewXMLStrategy creates an XMLStrategy.
func NewXMLStrategy(logger logging.Logger) *XMLStrategy {
	return &XMLStrategy{logger: logger}
}

// Name returns the name of this strategy for logging and debugging.
func (s *XMLStrategy) Name() string {
	return "XMLContent"
}

// Classify inspects the XML content. Malformed XML is returned as an error
// so the caller can log it; it never aborts classification.
func (s *XMLStrategy) Classify(_ context.Context, doc models.Document, company models.CompanyContext) (models.Classification, bool, error) {
	if doc.Ext() != models.ExtXML {
		return models.Classification{}, false, nil
	}
	if doc.IsEmpty() {
		return models.Classification{}, false, &fiscalerror.ClassificationError{
			Name: doc.Name, Strategy: s.Name(), Err: fiscalerror.ErrEmptyContent,
		}
	}

	info, err := InspectXML(doc.Bytes())
	if err != nil {
		return models.Classification{}, false, &fiscalerror.ClassificationError{
			Name: doc.Name, Strategy: s.Name(), Err: err,
		}
	}

	category, reason := ResolveXML(info, company)
	s.logger.Debug("Inspected XML content",
		logging.F(logging.FieldStrategy, s.Name()),
		logging.F(logging.FieldFile, doc.Name),
		logging.F("root", info.RootName),
		logging.F("model", info.ModelCode),
		logging.F("family", info.Family),
		logging.F(logging.FieldReason, reason))

	if category == "" {
		return models.Classification{}, false, nil
	}
	return models.Classification{
		Category: category,
		Strategy: s.Name(),
		Reason:   reason,
	}, true, nil
}

// ResolveXML applies the direction rules to extracted XML info. An empty
// category means the content gave no definitive answer.
func ResolveXML(info XMLInfo, company models.CompanyContext) (models.Category, string) {
	if info.Family == models.FamilyNone {
		return "", "no fiscal family recognised"
	}
	if info.Family == models.FamilyCTe && info.Cancelled {
		return models.CategoryCTeCancelada, "cancellation marker"
	}
	if !company.HasTaxID() {
		return "", "no company tax id to resolve direction"
	}

	switch company.TaxID {
	case info.RecipientCNPJ:
		if c := entryCategory(info.Family); c != "" {
			return c, "company is recipient"
		}
		return "", "no entry category for " + string(info.Family)
	case info.SenderCNPJ:
		return exitCategory(info.Family), "company is sender"
	default:
		return "", "company is neither sender nor recipient"
	}
}

func entryCategory(f models.Family) models.Category {
	switch f {
	case models.FamilyNFe:
		return models.CategoryNFeEntrada
	case models.FamilyCTe:
		return models.CategoryCTeEntrada
	case models.FamilyNFS:
		return models.CategoryNFSTomados
	default:
		return ""
	}
}

func exitCategory(f models.Family) models.Category {
	switch f {
	case models.FamilyNFe:
		return models.CategoryNFeSaida
	case models.FamilyNFCe:
		return models.CategoryNFCeSaida
	case models.FamilyCTe:
		return models.CategoryCTeSaida
	case models.FamilyNFS:
		return models.CategoryNFSPrestado
	default:
		return ""
	}
}
