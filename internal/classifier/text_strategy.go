package classifier

import (
	"bytes"
	"context"

	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"
)

type textMarker struct {
	marker   []byte
	category models.Category
}

// Literal, case-sensitive markers, in priority order.
var textMarkers = []textMarker{
	{[]byte("SPED"), models.CategorySPED},
	{[]byte("NFS TOMADO"), models.CategoryNFSTomados},
	{[]byte("NFS PRESTADO"), models.CategoryNFSPrestado},
}

// spedOpeningRecord starts every EFD/SPED file ("|0000|...").
var spedOpeningRecord = []byte("|0000|")

// TextStrategy classifies .txt documents from their content and falls back
// to TXT when no marker is present. It always resolves a .txt document.
type TextStrategy struct {
	logger logging.Logger
}

// NewTextStrategy creates a TextStrategy.
func NewTextStrategy(logger logging.Logger) *TextStrategy {
	return &TextStrategy{logger: logger}
}

// Name returns the name of this strategy for logging and debugging.
func (s *TextStrategy) Name() string {
	return "TextContent"
}

// Classify searches the content for the known markers.
func (s *TextStrategy) Classify(_ context.Context, doc models.Document, _ models.CompanyContext) (models.Classification, bool, error) {
	if doc.Ext() != models.ExtTXT {
		return models.Classification{}, false, nil
	}

	content := doc.Bytes()
	if bytes.HasPrefix(bytes.TrimLeft(content, "\ufeff \t\r\n"), spedOpeningRecord) {
		return s.match(doc, models.CategorySPED, "SPED opening record"), true, nil
	}
	for _, m := range textMarkers {
		if bytes.Contains(content, m.marker) {
			return s.match(doc, m.category, "marker "+string(m.marker)), true, nil
		}
	}
	return s.match(doc, models.CategoryTXT, "extension .txt"), true, nil
}

func (s *TextStrategy) match(doc models.Document, c models.Category, reason string) models.Classification {
	s.logger.Debug("Document classified by text content",
		logging.F(logging.FieldStrategy, s.Name()),
		logging.F(logging.FieldFile, doc.Name),
		logging.F(logging.FieldCategory, c),
		logging.F(logging.FieldReason, reason))
	return models.Classification{Category: c, Strategy: s.Name(), Reason: reason}
}
