package transport

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_ListedUF(t *testing.T) {
	url, err := Endpoint(ServiceAutorizacao, "35", Homologation)
	require.NoError(t, err)
	assert.Equal(t, "https://homologacao.nfe.fazenda.sp.gov.br/ws/NfeAutorizacao4.asmx", url)

	url, err = Endpoint(ServiceAutorizacao, "35", Production)
	require.NoError(t, err)
	assert.Equal(t, "https://nfe.fazenda.sp.gov.br/ws/NfeAutorizacao4.asmx", url)

	url, err = Endpoint(ServiceRecepcaoEvento, "31", Production)
	require.NoError(t, err)
	assert.Equal(t, "https://nfe.fazenda.mg.gov.br/nfe/services/NFeRecepcaoEvento4", url)
}

func TestEndpoint_DelegatedUF(t *testing.T) {
	url, err := Endpoint(ServiceAutorizacao, "33", Production)
	require.NoError(t, err)
	assert.Equal(t, "https://nfe.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx", url, "RJ uses SVRS")

	url, err = Endpoint(ServiceAutorizacao, "53", Homologation)
	require.NoError(t, err)
	assert.Equal(t, "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx", url, "DF uses SVC-AN")
}

func TestEndpoint_FallsBackToNational(t *testing.T) {
	tests := []struct {
		service Service
		cUF     string
		env     Environment
		want    string
	}{
		{ServiceConsultaProtocolo, "29", Production, "https://nfe.fazenda.gov.br/NfeConsultaProtocolo4/NfeConsultaProtocolo4.asmx"},
		{ServiceInutilizacao, "42", Homologation, "https://hom1.nfe.fazenda.gov.br/NfeInutilizacao4/NfeInutilizacao4.asmx"},
		{ServiceStatusServico, "", Production, "https://nfe.fazenda.gov.br/NFeStatusServico4/NFeStatusServico4.asmx"},
		{ServiceRecepcaoEvento, "xx", "", "https://hom1.nfe.fazenda.gov.br/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx"},
	}
	for _, tt := range tests {
		got, err := Endpoint(tt.service, tt.cUF, tt.env)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestEndpoint_VirtualCodes(t *testing.T) {
	url, err := Endpoint(ServiceStatusServico, "90", Production)
	require.NoError(t, err)
	assert.Equal(t, "https://nfe.sefaz.rs.gov.br/ws/NFeStatusServico/NFeStatusServico4.asmx", url)

	url, err = Endpoint(ServiceRecepcaoEvento, "91", Homologation)
	require.NoError(t, err)
	assert.Equal(t, "https://hom1.nfe.fazenda.gov.br/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx", url)
}

func TestEndpoint_EveryServiceHasBothEnvironments(t *testing.T) {
	for service := range servicePaths {
		for _, env := range []Environment{Production, Homologation} {
			table := endpoints[service][env]
			require.NotEmpty(t, table, "%s/%s", service, env)
			for code, url := range table {
				assert.True(t, strings.HasPrefix(url, "https://"), "%s/%s/%d", service, env, code)
			}
			assert.Contains(t, table, CodeSVCAN)
			assert.Contains(t, table, CodeSVRS)
		}
		assert.NotEmpty(t, service.Namespace())
	}
}

func TestEndpoint_UnknownService(t *testing.T) {
	_, err := Endpoint("cadastro", "35", Production)
	assert.Error(t, err)
}

func TestParseEnvironment(t *testing.T) {
	for _, s := range []string{"producao", "PRODUCTION", " prod ", "1"} {
		env, err := ParseEnvironment(s)
		require.NoError(t, err, s)
		assert.Equal(t, Production, env)
		assert.Equal(t, 1, env.TpAmb())
	}
	for _, s := range []string{"homologacao", "teste", "test", "2"} {
		env, err := ParseEnvironment(s)
		require.NoError(t, err, s)
		assert.Equal(t, Homologation, env)
		assert.Equal(t, 2, env.TpAmb())
	}
	_, err := ParseEnvironment("staging")
	assert.Error(t, err)
}

func TestSaoPauloEndpoints(t *testing.T) {
	d := DefaultSaoPauloEndpoints()
	assert.Equal(t, d.Async, d.For(OpEnvioLoteRPS, Production))
	assert.Equal(t, d.Sync, d.For(OpEnvioRPS, Production))
	assert.Equal(t, d.TestAsync, d.For(OpConsultaSituacaoLote, Homologation))
	assert.Equal(t, d.TestSync, d.For(OpEnvioRPS, Homologation))

	custom := SaoPauloEndpoints{TestAsync: "https://sp.test/async.asmx"}
	assert.Equal(t, "https://sp.test/async.asmx", custom.For(OpTesteEnvioLoteRPS, Homologation))
	assert.Equal(t, d.Async, custom.For(OpEnvioLoteRPS, Production))
}

const signedNFe = `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe Id="NFe1" versao="4.00"><ide><cUF>35</cUF></ide></infNFe>` +
	`<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><SignedInfo/></Signature></NFe>`

func TestNFeEnvelope(t *testing.T) {
	out, err := NFeEnvelope(ServiceAutorizacao, "35", `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+signedNFe)
	require.NoError(t, err)
	s := string(out)

	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, s, `<soap12:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" `+
		`xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">`)
	assert.Contains(t, s, `<soap12:Header><nfeCabecMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4">`+
		`<cUF>35</cUF><versaoDados>4.00</versaoDados></nfeCabecMsg></soap12:Header>`)
	assert.Contains(t, s, `<soap12:Body><nfeDadosMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4">`+
		signedNFe+`</nfeDadosMsg></soap12:Body></soap12:Envelope>`)
	assert.Equal(t, 1, strings.Count(s, "<?xml"), "inner declaration is dropped")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	cuf := doc.FindElement("//nfeCabecMsg/cUF")
	require.NotNil(t, cuf)
	assert.Equal(t, "35", cuf.Text())
}

func TestNFeEnvelope_Errors(t *testing.T) {
	_, err := NFeEnvelope("unknown", "35", signedNFe)
	assert.Error(t, err)
	_, err = NFeEnvelope(ServiceStatusServico, "35", "  ")
	assert.Error(t, err)
	_, err = NFeEnvelope(ServiceStatusServico, "35", "<consStatServ>")
	assert.ErrorContains(t, err, "not well-formed")
}

func TestEnvelope_ExactBytes(t *testing.T) {
	const consStat = `<consStatServ xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">` +
		`<tpAmb>2</tpAmb><cUF>35</cUF><xServ>STATUS</xServ></consStatServ>`
	const pedido = `<PedidoConsultaSituacaoLote xmlns="http://www.prefeitura.sp.gov.br/nfe">` +
		`<Cabecalho Versao="1"><NumeroLote>42</NumeroLote></Cabecalho></PedidoConsultaSituacaoLote>`

	tests := []struct {
		name  string
		build func() ([]byte, error)
		want  string
	}{
		{
			name:  "nfe soap 1.2",
			build: func() ([]byte, error) { return NFeEnvelope(ServiceStatusServico, "35", consStat) },
			want: `<?xml version="1.0" encoding="UTF-8"?>` +
				`<soap12:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
				`xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">` +
				`<soap12:Header><nfeCabecMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeStatusServico4">` +
				`<cUF>35</cUF><versaoDados>4.00</versaoDados></nfeCabecMsg></soap12:Header>` +
				`<soap12:Body><nfeDadosMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeStatusServico4">` +
				consStat + `</nfeDadosMsg></soap12:Body></soap12:Envelope>`,
		},
		{
			name:  "nfse soap 1.1 async",
			build: func() ([]byte, error) { return NFSeEnvelope(OpConsultaSituacaoLote, 1, pedido) },
			want: `<?xml version="1.0" encoding="UTF-8"?>` +
				`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" ` +
				`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">` +
				`<soap:Body><ConsultaSituacaoLoteRequest xmlns="http://www.prefeitura.sp.gov.br/nfe">` +
				`<versaoSchema>1</versaoSchema><MensagemXML><![CDATA[` + pedido + `]]></MensagemXML>` +
				`</ConsultaSituacaoLoteRequest></soap:Body></soap:Envelope>`,
		},
		{
			name:  "nfse soap 1.1 sync",
			build: func() ([]byte, error) { return NFSeEnvelope(OpEnvioRPS, 1, "<PedidoEnvioRPS/>") },
			want: `<?xml version="1.0" encoding="UTF-8"?>` +
				`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" ` +
				`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">` +
				`<soap:Body><EnvioRPSRequest xmlns="http://www.prefeitura.sp.gov.br/nfe">` +
				`<VersaoSchema>1</VersaoSchema><MensagemXML><![CDATA[<PedidoEnvioRPS/>]]></MensagemXML>` +
				`</EnvioRPSRequest></soap:Body></soap:Envelope>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestNFSeEnvelope_AsyncUsesLowercaseSchemaField(t *testing.T) {
	msg := `<?xml version="1.0" encoding="UTF-8"?><PedidoEnvioLoteRPS xmlns="http://www.prefeitura.sp.gov.br/nfe"><x>a &amp; b</x></PedidoEnvioLoteRPS>`
	out, err := NFSeEnvelope(OpEnvioLoteRPS, 1, msg)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" `+
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema"><soap:Body>`)
	assert.Contains(t, s, `<EnvioLoteRPSRequest xmlns="http://www.prefeitura.sp.gov.br/nfe"><versaoSchema>1</versaoSchema>`+
		`<MensagemXML><![CDATA[`+msg+`]]></MensagemXML></EnvioLoteRPSRequest></soap:Body></soap:Envelope>`)
	assert.NotContains(t, s, "VersaoSchema")
}

func TestNFSeEnvelope_SyncUsesCapitalizedSchemaField(t *testing.T) {
	out, err := NFSeEnvelope(OpEnvioRPS, 1, "<PedidoEnvioRPS/>")
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<EnvioRPSRequest xmlns="http://www.prefeitura.sp.gov.br/nfe"><VersaoSchema>1</VersaoSchema>`)
	assert.NotContains(t, s, "<versaoSchema>")
}

func TestNFSeEnvelope_OperationNames(t *testing.T) {
	for _, op := range []Operation{OpTesteEnvioLoteRPS, OpConsultaSituacaoLote} {
		out, err := NFSeEnvelope(op, 1, "<x/>")
		require.NoError(t, err)
		assert.Contains(t, string(out), "<"+op.Name+"Request ")
		assert.Contains(t, string(out), "<versaoSchema>1</versaoSchema>")
	}
	_, err := NFSeEnvelope(Operation{}, 1, "<x/>")
	assert.Error(t, err)
	_, err = NFSeEnvelope(OpEnvioRPS, 1, "")
	assert.Error(t, err)
}
