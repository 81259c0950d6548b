package classifier

import (
	"fmt"

	"fjacquet/fiscal-organizer/internal/models"
)

const (
	companyCNPJ = "12345678000190"
	otherCNPJ   = "99888777000166"
	thirdCNPJ   = "55444333000122"
)

func nfeXML(model, emit, dest string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe versao="4.00">
      <ide><mod>%s</mod><idDest>1</idDest></ide>
      <emit><CNPJ>%s</CNPJ><enderEmit><xMun>Sao Paulo</xMun></enderEmit></emit>
      <dest><CNPJ>%s</CNPJ></dest>
    </infNFe>
  </NFe>
</nfeProc>`, model, emit, dest)
}

func cteXML(root, emit, dest string) string {
	return fmt.Sprintf(`<%[1]s xmlns="http://www.portalfiscal.inf.br/cte">
  <infCte><ide><mod>57</mod></ide>
    <emit><CNPJ>%[2]s</CNPJ></emit>
    <dest><CNPJ>%[3]s</CNPJ></dest>
  </infCte>
</%[1]s>`, root, emit, dest)
}

func company(taxID string) models.CompanyContext {
	return models.CompanyContext{Name: "Acme", TaxID: taxID}
}

func doc(name, content string) models.Document {
	return models.NewDocument(name, []byte(content))
}
