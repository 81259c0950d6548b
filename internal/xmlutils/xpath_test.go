package xmlutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNFe = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe3524" versao="4.00">
      <ide><cUF>35</cUF><mod>55</mod><serie>1</serie></ide>
      <emit><CNPJ>11111111000111</CNPJ><xNome>Fornecedor</xNome></emit>
      <dest><CNPJ>22222222000122</CNPJ></dest>
    </infNFe>
  </NFe>
</nfeProc>`

func TestParse(t *testing.T) {
	root, err := Parse([]byte(sampleNFe))
	require.NoError(t, err)
	assert.NotNil(t, root)

	_, err = Parse([]byte("<open><unclosed></open>"))
	assert.Error(t, err)

	_, err = Parse([]byte("   "))
	assert.Error(t, err)
}

func TestParse_Latin1Declaration(t *testing.T) {
	// "Fábrica" encoded as ISO-8859-1.
	data := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><CTe><ide><mod>57</mod></ide><xNome>F`), 0xE1)
	data = append(data, []byte(`brica</xNome></CTe>`)...)

	root, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "57", FirstValue(root, Fiscal.ModelCode))
	assert.Equal(t, "Fábrica", FirstValue(root, "//xNome"))
}

func TestExtractFromXML(t *testing.T) {
	root, err := Parse([]byte(sampleNFe))
	require.NoError(t, err)

	values, err := ExtractFromXML(root, "//CNPJ")
	require.NoError(t, err)
	assert.Equal(t, []string{"11111111000111", "22222222000122"}, values)

	_, err = ExtractFromXML(root, "//[")
	assert.Error(t, err)
}

func TestFirstValue(t *testing.T) {
	root, err := Parse([]byte(sampleNFe))
	require.NoError(t, err)

	assert.Equal(t, "55", FirstValue(root, Fiscal.ModelCode))
	assert.Equal(t, "55", FirstValue(root, Fiscal.ModelCodeAnywhere))
	assert.Equal(t, "", FirstValue(root, "//missing"))
	assert.Equal(t, "", FirstValue(root, "//["))
}
