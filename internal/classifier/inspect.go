package classifier

import (
	"strings"

	"fjacquet/fiscal-organizer/internal/models"
	"fjacquet/fiscal-organizer/internal/xmlutils"
)

// XMLInfo is the structural signal extracted from a fiscal XML document.
type XMLInfo struct {
	RootName      string
	ModelCode     string
	Family        models.Family
	SenderCNPJ    string
	RecipientCNPJ string
	Cancelled     bool
}

// Element-name fragments that identify the two parties of a document.
// NFS-e layouts name them Prestador/Tomador instead of emit/dest.
var (
	senderTags    = []string{"emit", "prestador"}
	recipientTags = []string{"dest", "tomador"}
)

// InspectXML parses data and extracts model, parties and cancellation marker.
// It fails only when the content is not well-formed XML.
func InspectXML(data []byte) (XMLInfo, error) {
	node, err := xmlutils.Parse(data)
	if err != nil {
		return XMLInfo{}, err
	}
	root, err := xmlutils.BuildTree(data)
	if err != nil {
		return XMLInfo{}, err
	}

	info := XMLInfo{RootName: root.Name}

	info.ModelCode = xmlutils.FirstValue(node, xmlutils.Fiscal.ModelCode)
	if info.ModelCode == "" {
		info.ModelCode = xmlutils.FirstValue(node, xmlutils.Fiscal.ModelCodeAnywhere)
	}
	info.Family = familyFromModel(info.ModelCode)
	if info.Family == models.FamilyNone {
		info.Family = familyFromRoot(root.Name)
	}

	info.SenderCNPJ = partyCNPJ(root, senderTags)
	info.RecipientCNPJ = partyCNPJ(root, recipientTags)
	info.Cancelled = isCancelled(root)
	for _, xpath := range xmlutils.Fiscal.EventDescriptions {
		if strings.Contains(strings.ToLower(xmlutils.FirstValue(node, xpath)), "cancelamento") {
			info.Cancelled = true
		}
	}

	return info, nil
}

// familyFromModel maps the "mod" field. It is authoritative over the root tag.
func familyFromModel(code string) models.Family {
	switch code {
	case xmlutils.ModelNFe:
		return models.FamilyNFe
	case xmlutils.ModelNFCe:
		return models.FamilyNFCe
	case xmlutils.ModelCTe:
		return models.FamilyCTe
	default:
		return models.FamilyNone
	}
}

// familyFromRoot is the fallback signal: NFe, nfeProc, CTe, cteProc, NFCe, CompNfse...
func familyFromRoot(name string) models.Family {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "nfce"):
		return models.FamilyNFCe
	case strings.Contains(lower, "cte"):
		return models.FamilyCTe
	case strings.Contains(lower, "nfe"):
		return models.FamilyNFe
	case strings.Contains(lower, "nfs"):
		return models.FamilyNFS
	default:
		return models.FamilyNone
	}
}

// partyCNPJ returns the CNPJ nested under the first element whose name
// contains one of the fragments. Elements without a CNPJ (idDest,
// enderEmit, a CPF-only party) are skipped.
func partyCNPJ(root *xmlutils.Element, fragments []string) string {
	for _, el := range root.FindAll(func(e *xmlutils.Element) bool {
		lower := strings.ToLower(e.Name)
		for _, f := range fragments {
			if strings.Contains(lower, f) {
				return true
			}
		}
		return false
	}) {
		if cnpj := el.Find(xmlutils.NameIs("CNPJ")); cnpj != nil {
			if v := models.NormalizeCNPJ(cnpj.TrimmedText()); v != "" {
				return v
			}
		}
	}
	return ""
}

// isCancelled looks for "canc" in the root tag or its attributes.
func isCancelled(root *xmlutils.Element) bool {
	if strings.Contains(strings.ToLower(root.Name), "canc") {
		return true
	}
	for _, a := range root.Attrs {
		if strings.Contains(strings.ToLower(a.Name.Local), "canc") ||
			strings.Contains(strings.ToLower(a.Value), "canc") {
			return true
		}
	}
	return false
}
