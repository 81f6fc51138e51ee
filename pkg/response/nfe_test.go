package response

import (
	"html"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

func nfeResult(ret string) []byte {
	return soap12(`<nfeResultMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4">` + ret + `</nfeResultMsg>`)
}

const authorized = `<retEnviNFe versao="4.00" xmlns="http://www.portalfiscal.inf.br/nfe">` +
	`<tpAmb>2</tpAmb><verAplic>SP_NFE_PL009_V4</verAplic><cStat>104</cStat><xMotivo>Lote processado</xMotivo>` +
	`<cUF>35</cUF><dhRecbto>2024-03-01T10:00:00-03:00</dhRecbto>` +
	`<protNFe versao="4.00"><infProt><tpAmb>2</tpAmb><verAplic>SP_NFE_PL009_V4</verAplic>` +
	`<chNFe>35240311222333000181550010000000011123456780</chNFe><dhRecbto>2024-03-01T10:00:01-03:00</dhRecbto>` +
	`<nProt>135240000000001</nProt><digVal>abc=</digVal><cStat>100</cStat>` +
	`<xMotivo>Autorizado o uso da NF-e</xMotivo></infProt></protNFe></retEnviNFe>`

func TestParseNFe_Authorized(t *testing.T) {
	r, err := ParseNFe(nfeResult(authorized), FamilyAuthorization)
	require.NoError(t, err)

	assert.True(t, r.Success)
	assert.Equal(t, "4.00", r.Version)
	assert.Equal(t, &Status{Code: "104", Reason: "Lote processado"}, r.Status)
	require.NotNil(t, r.Protocol)
	assert.Equal(t, "135240000000001", r.Protocol.Number)
	assert.Equal(t, "abc=", r.Protocol.DigestValue)
	assert.Equal(t, "100", r.Protocol.Status.Code)
	assert.Equal(t, []DocumentKey{{AccessKey: "35240311222333000181550010000000011123456780"}}, r.DocumentKeys)
	assert.Empty(t, r.Errors)
}

func TestParseNFe_RejectedProtocolStaysInProtocol(t *testing.T) {
	ret := `<retEnviNFe versao="4.00"><cStat>104</cStat><xMotivo>Lote processado</xMotivo>` +
		`<protNFe versao="4.00"><infProt><chNFe>352403</chNFe><cStat>539</cStat>` +
		`<xMotivo>Rejeicao: Duplicidade de NF-e</xMotivo></infProt></protNFe></retEnviNFe>`

	r, err := ParseNFe(nfeResult(ret), FamilyAuthorization)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, &Status{Code: "104", Reason: "Lote processado"}, r.Status)
	assert.Equal(t, Status{Code: "539", Reason: "Rejeicao: Duplicidade de NF-e"}, r.Protocol.Status)
	assert.Empty(t, r.Errors)
	assert.NotNil(t, r.Errors)
}

func TestParseNFe_LotReceived(t *testing.T) {
	ret := `<retEnviNFe versao="4.00"><cStat>103</cStat><xMotivo>Lote recebido com sucesso</xMotivo>` +
		`<dhRecbto>2024-03-01T10:00:00-03:00</dhRecbto><infRec><nRec>351000000000001</nRec><tMed>1</tMed></infRec></retEnviNFe>`

	r, err := ParseNFe(nfeResult(ret), FamilyAuthorization)
	require.NoError(t, err)
	assert.True(t, r.Success)
	require.NotNil(t, r.LotInfo)
	assert.Equal(t, "351000000000001", r.LotInfo.Protocol)
}

func TestParseNFe_LotRejected(t *testing.T) {
	ret := `<retEnviNFe versao="4.00"><cStat>225</cStat><xMotivo>Rejeicao: Falha no Schema XML</xMotivo></retEnviNFe>`

	r, err := ParseNFe(nfeResult(ret), FamilyAuthorization)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, &Status{Code: "225", Reason: "Rejeicao: Falha no Schema XML"}, r.Status)
	assert.Nil(t, r.LotInfo)
	assert.Empty(t, r.Errors)
}

func TestParseNFe_EscapedPayload(t *testing.T) {
	r, err := ParseNFe(nfeResult(html.EscapeString(authorized)), FamilyAuthorization)
	require.NoError(t, err)
	assert.True(t, r.Success)

	_, err = ParseNFe(nfeResult(html.EscapeString(authorized)), FamilyQuery)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindUpstreamResponseUnparseable))
}

func TestParseNFe_Query(t *testing.T) {
	ret := `<retConsSitNFe versao="4.00"><cStat>101</cStat><xMotivo>Cancelamento de NF-e homologado</xMotivo>` +
		`<chNFe>35240311222333000181550010000000011123456780</chNFe>` +
		`<protNFe versao="4.00"><infProt><nProt>135240000000001</nProt><cStat>100</cStat><xMotivo>Autorizado</xMotivo></infProt></protNFe>` +
		`<procEventoNFe versao="1.00"><evento/><retEvento versao="1.00"><infEvento><cStat>135</cStat>` +
		`<xMotivo>Evento registrado</xMotivo><tpEvento>110111</tpEvento><nSeqEvento>1</nSeqEvento>` +
		`<nProt>135240000000002</nProt></infEvento></retEvento></procEventoNFe></retConsSitNFe>`

	r, err := ParseNFe(nfeResult(ret), FamilyQuery)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "101", r.Status.Code)
	assert.Equal(t, "135240000000001", r.Protocol.Number)
	require.Len(t, r.Events, 1)
	assert.Equal(t, "110111", r.Events[0].Type)
	assert.Equal(t, "135240000000002", r.Events[0].Protocol)
}

func TestParseNFe_Inutilization(t *testing.T) {
	ret := `<retInutNFe versao="4.00"><infInut><tpAmb>2</tpAmb><cStat>102</cStat>` +
		`<xMotivo>Inutilizacao de numero homologado</xMotivo><dhRecbto>2024-03-01T10:00:00-03:00</dhRecbto>` +
		`<nProt>135240000000003</nProt></infInut></retInutNFe>`

	r, err := ParseNFe(nfeResult(ret), FamilyInutilization)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "135240000000003", r.Protocol.Number)
}

func TestParseNFe_Event(t *testing.T) {
	ok := `<retEnvEvento versao="1.00"><idLote>1</idLote><cStat>128</cStat><xMotivo>Lote de evento processado</xMotivo>` +
		`<retEvento versao="1.00"><infEvento><cStat>135</cStat><xMotivo>Evento registrado e vinculado a NF-e</xMotivo>` +
		`<chNFe>352403</chNFe><tpEvento>110111</tpEvento><nSeqEvento>1</nSeqEvento>` +
		`<dhRegEvento>2024-03-01T10:00:00-03:00</dhRegEvento><nProt>135240000000004</nProt></infEvento></retEvento></retEnvEvento>`

	r, err := ParseNFe(nfeResult(ok), FamilyEvent)
	require.NoError(t, err)
	assert.True(t, r.Success)
	require.Len(t, r.Events, 1)
	assert.Equal(t, "2024-03-01T10:00:00-03:00", r.Events[0].RegisteredAt)

	rejected := `<retEnvEvento versao="1.00"><cStat>128</cStat><xMotivo>Lote de evento processado</xMotivo>` +
		`<retEvento versao="1.00"><infEvento><cStat>573</cStat><xMotivo>Rejeicao: Duplicidade de evento</xMotivo>` +
		`</infEvento></retEvento></retEnvEvento>`
	r, err = ParseNFe(nfeResult(rejected), FamilyEvent)
	require.NoError(t, err)
	assert.False(t, r.Success)
	require.Len(t, r.Events, 1)
	assert.Equal(t, Status{Code: "573", Reason: "Rejeicao: Duplicidade de evento"}, r.Events[0].Status)
	assert.Empty(t, r.Errors)

	lotOnly := `<retEnvEvento versao="1.00"><cStat>489</cStat><xMotivo>Rejeicao: CNPJ invalido</xMotivo></retEnvEvento>`
	r, err = ParseNFe(nfeResult(lotOnly), FamilyEvent)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "489", r.Status.Code)
	assert.Empty(t, r.Events)
	assert.Empty(t, r.Errors)
}

func TestParseNFe_ServiceStatus(t *testing.T) {
	ret := `<retConsStatServ versao="4.00"><tpAmb>2</tpAmb><cStat>107</cStat><xMotivo>Servico em Operacao</xMotivo>` +
		`<cUF>35</cUF><dhRecbto>2024-03-01T10:00:00-03:00</dhRecbto><tMed>1</tMed></retConsStatServ>`

	r, err := ParseNFe(nfeResult(ret), FamilyServiceStatus)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, &Status{Code: "107", Reason: "Servico em Operacao"}, r.Status)

	down := `<retConsStatServ versao="4.00"><cStat>108</cStat><xMotivo>Servico Paralisado Momentaneamente</xMotivo></retConsStatServ>`
	r, err = ParseNFe(nfeResult(down), FamilyServiceStatus)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "108", r.Status.Code)
	assert.Empty(t, r.Errors)
}

func TestParseNFe_WrongWrapper(t *testing.T) {
	_, err := ParseNFe(soap12(`<other/>`), FamilyServiceStatus)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindUpstreamResponseUnparseable))

	_, err = ParseNFe(nfeResult(authorized), "retDistDFeInt")
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindUpstreamResponseUnparseable))
}
