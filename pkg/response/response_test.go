package response

import (
	"encoding/json"
	"html"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

func soap11(inner string) []byte {
	return []byte(`<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		inner + `</soap:Body></soap:Envelope>`)
}

func soap12(inner string) []byte {
	return []byte(`<?xml version="1.0" encoding="utf-8"?>` +
		`<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope"><env:Body>` +
		inner + `</env:Body></env:Envelope>`)
}

// spResponse wraps retorno, escaped, in RetornoXML as São Paulo does.
func spResponse(wrapper, retorno string) []byte {
	return soap11(`<` + wrapper + ` xmlns="http://www.prefeitura.sp.gov.br/nfe"><RetornoXML>` +
		html.EscapeString(retorno) + `</RetornoXML></` + wrapper + `>`)
}

const batchAccepted = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<RetornoEnvioLoteRPSAsync xmlns="http://www.prefeitura.sp.gov.br/nfe">` +
	`<Cabecalho Versao="1" xmlns=""><Sucesso>true</Sucesso>` +
	`<InformacoesLote><NumeroLote>4321</NumeroLote><InscricaoPrestador>12345678</InscricaoPrestador>` +
	`<CPFCNPJRemetente><CNPJ>11222333000181</CNPJ></CPFCNPJRemetente>` +
	`<DataEnvioLote>2024-03-01T10:00:00</DataEnvioLote><QtdNotasProcessadas>2</QtdNotasProcessadas>` +
	`<TempoProcessamento>1</TempoProcessamento><ValorTotalServicos>1500.5</ValorTotalServicos>` +
	`<NumeroProtocolo>987654321</NumeroProtocolo></InformacoesLote></Cabecalho>` +
	`<Alerta xmlns=""><Codigo>203</Codigo><Descricao>Aviso de teste</Descricao></Alerta>` +
	`</RetornoEnvioLoteRPSAsync>`

func TestParseBatch_Accepted(t *testing.T) {
	r, err := ParseBatch(spResponse("EnvioLoteRPSResponseAsync", batchAccepted))
	require.NoError(t, err)

	assert.True(t, r.Success)
	assert.Equal(t, "1", r.Version)
	assert.Empty(t, r.Errors)
	assert.NotNil(t, r.Errors)
	assert.Equal(t, []Message{{Code: "203", Description: "Aviso de teste"}}, r.Warnings)

	require.NotNil(t, r.LotInfo)
	assert.Equal(t, "4321", r.LotInfo.LotNumber)
	assert.Equal(t, "987654321", r.LotInfo.Protocol)
	assert.Equal(t, "12345678", r.LotInfo.ProviderRegistration)
	assert.Equal(t, &TaxID{CNPJ: "11222333000181"}, r.LotInfo.Sender)
	assert.Equal(t, "2024-03-01T10:00:00", r.LotInfo.SentAt)
	require.NotNil(t, r.LotInfo.ProcessedCount)
	assert.Equal(t, 2, *r.LotInfo.ProcessedCount)
	require.NotNil(t, r.LotInfo.TotalServices)
	assert.InDelta(t, 1500.5, *r.LotInfo.TotalServices, 1e-9)
	assert.Nil(t, r.LotInfo.TotalDeductions)
	assert.NotNil(t, r.DocumentKeys)
	assert.Empty(t, r.DocumentKeys)
}

func TestParseBatch_AlternateWrapperNames(t *testing.T) {
	for _, w := range []string{"EnvioLoteRPSResponse", "EnvioLoteRpsAsyncResponse"} {
		r, err := ParseBatch(spResponse(w, batchAccepted))
		require.NoError(t, err, w)
		assert.True(t, r.Success)
	}
}

func TestParseBatch_SingleAndRepeatedErrors(t *testing.T) {
	one := `<RetornoEnvioLoteRPS><Cabecalho Versao="1"><Sucesso>false</Sucesso></Cabecalho>` +
		`<Erro><Codigo>1057</Codigo><Descricao>Assinatura invalida</Descricao></Erro></RetornoEnvioLoteRPS>`
	two := `<RetornoEnvioLoteRPS><Cabecalho Versao="1"><Sucesso>false</Sucesso></Cabecalho>` +
		`<Erro><Codigo>1057</Codigo><Descricao>Assinatura invalida</Descricao></Erro>` +
		`<Erro><Codigo>1206</Codigo><Descricao>Data invalida</Descricao></Erro></RetornoEnvioLoteRPS>`

	r1, err := ParseBatch(spResponse("EnvioLoteRPSResponse", one))
	require.NoError(t, err)
	assert.False(t, r1.Success)
	assert.Equal(t, []Message{{"1057", "Assinatura invalida"}}, r1.Errors)

	r2, err := ParseBatch(spResponse("EnvioLoteRPSResponse", two))
	require.NoError(t, err)
	assert.Equal(t, []Message{{"1057", "Assinatura invalida"}, {"1206", "Data invalida"}}, r2.Errors)
}

func TestParseBatch_SuccessAndErrorsAreIndependent(t *testing.T) {
	doc := `<RetornoEnvioLoteRPS><Cabecalho Versao="1"><Sucesso>TRUE</Sucesso></Cabecalho>` +
		`<Erro><Codigo>999</Codigo><Descricao>reported anyway</Descricao></Erro></RetornoEnvioLoteRPS>`

	r, err := ParseBatch(spResponse("EnvioLoteRPSResponse", doc))
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Len(t, r.Errors, 1)
}

func TestParseBatch_Idempotent(t *testing.T) {
	raw := spResponse("EnvioLoteRPSResponseAsync", batchAccepted)
	r1, err := ParseBatch(raw)
	require.NoError(t, err)
	r2, err := ParseBatch(raw)
	require.NoError(t, err)

	j1, _ := json.Marshal(r1)
	j2, _ := json.Marshal(r2)
	assert.JSONEq(t, string(j1), string(j2))
}

func TestParseTestBatch(t *testing.T) {
	doc := `<RetornoEnvioLoteRPS><Cabecalho Versao="1"><Sucesso>true</Sucesso>` +
		`<InformacoesLote><NumeroLote>0</NumeroLote></InformacoesLote></Cabecalho></RetornoEnvioLoteRPS>`

	r, err := ParseTestBatch(spResponse("TesteEnvioLoteRPSResponse", doc))
	require.NoError(t, err)
	assert.True(t, r.Success)

	_, err = ParseTestBatch(spResponse("EnvioRPSResponse", doc))
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindUpstreamResponseUnparseable))
}

func TestParseRPS_DocumentKeys(t *testing.T) {
	doc := `<RetornoEnvioRPS xmlns="http://www.prefeitura.sp.gov.br/nfe">` +
		`<Cabecalho Versao="1" xmlns=""><Sucesso>true</Sucesso></Cabecalho>` +
		`<ChaveNFeRPS xmlns=""><ChaveNFe><InscricaoPrestador>12345678</InscricaoPrestador>` +
		`<NumeroNFe>101</NumeroNFe><CodigoVerificacao>ABCD1234</CodigoVerificacao></ChaveNFe>` +
		`<ChaveRPS><InscricaoPrestador>12345678</InscricaoPrestador><SerieRPS>A</SerieRPS>` +
		`<NumeroRPS>55</NumeroRPS></ChaveRPS></ChaveNFeRPS></RetornoEnvioRPS>`

	r, err := ParseRPS(spResponse("EnvioRPSResponse", doc))
	require.NoError(t, err)
	require.Len(t, r.DocumentKeys, 1)
	assert.Equal(t, DocumentKey{
		ProviderRegistration: "12345678",
		DocumentNumber:       "101",
		VerificationCode:     "ABCD1234",
		SourceKey:            &SourceKey{ProviderRegistration: "12345678", Series: "A", Number: "55"},
	}, r.DocumentKeys[0])
}

func TestParseLotStatus_NestedResult(t *testing.T) {
	operation := `<RetornoEnvioLoteRPS><Cabecalho Versao="1"><Sucesso>true</Sucesso>` +
		`<InformacoesLote><NumeroLote>4321</NumeroLote><QtdNotasProcessadas>1</QtdNotasProcessadas></InformacoesLote>` +
		`</Cabecalho><ChaveNFeRPS><ChaveNFe><NumeroNFe>101</NumeroNFe></ChaveNFe></ChaveNFeRPS></RetornoEnvioLoteRPS>`
	doc := `<RetornoConsultaSituacaoLote><Cabecalho Versao="1"><Sucesso>true</Sucesso></Cabecalho>` +
		`<NumeroLote>4321</NumeroLote><Situacao>3</Situacao>` +
		`<DataRecebimento>2024-03-01T10:00:00</DataRecebimento><DataProcessamento>2024-03-01T10:05:00</DataProcessamento>` +
		`<ResultadoOperacao>` + html.EscapeString(operation) + `</ResultadoOperacao></RetornoConsultaSituacaoLote>`

	r, err := ParseLotStatus(spResponse("ConsultaSituacaoLoteResponse", doc))
	require.NoError(t, err)
	assert.True(t, r.Success)
	require.NotNil(t, r.LotInfo)
	assert.Equal(t, "4321", r.LotInfo.LotNumber)
	assert.Equal(t, &LotStatus{Code: "3", Name: "processado"}, r.LotInfo.Status)
	assert.Equal(t, "2024-03-01T10:05:00", r.LotInfo.ProcessedAt)

	require.NotNil(t, r.Operation)
	assert.True(t, r.Operation.Success)
	require.Len(t, r.Operation.DocumentKeys, 1)
	assert.Equal(t, "101", r.Operation.DocumentKeys[0].DocumentNumber)
}

func TestParseLotStatus_UnreadableOperationDegrades(t *testing.T) {
	doc := `<RetornoConsultaSituacaoLote><Cabecalho Versao="1"><Sucesso>true</Sucesso></Cabecalho>` +
		`<Situacao>9</Situacao><ResultadoOperacao>not xml</ResultadoOperacao></RetornoConsultaSituacaoLote>`

	r, err := ParseLotStatus(spResponse("ConsultaSituacaoLoteResponse", doc))
	require.NoError(t, err)
	assert.Nil(t, r.Operation)
	assert.Equal(t, "desconhecido", r.LotInfo.Status.Name)
}

func TestParse_FaultComesFirst(t *testing.T) {
	f11 := soap11(`<soap:Fault><faultcode>soap:Server</faultcode><faultstring>Erro interno</faultstring></soap:Fault>`)
	_, err := ParseBatch(f11)
	fe, ok := fiscalerr.As(err)
	require.True(t, ok)
	assert.Equal(t, fiscalerr.KindUpstreamFault, fe.Kind)
	assert.Equal(t, "soap:Server: Erro interno", fe.Message)
	assert.Equal(t, f11, fe.Raw)

	f12 := soap12(`<env:Fault><env:Code><env:Value>env:Receiver</env:Value></env:Code>` +
		`<env:Reason><env:Text xml:lang="pt">Servico paralisado</env:Text></env:Reason></env:Fault>`)
	_, err = ParseNFe(f12, FamilyServiceStatus)
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindUpstreamFault))
	assert.Contains(t, err.Error(), "Servico paralisado")
}

func TestDetectFault(t *testing.T) {
	f, ok := DetectFault(soap11(`<soap:Fault><faultcode>soap:Client</faultcode><faultstring>bad</faultstring></soap:Fault>`))
	require.True(t, ok)
	assert.Equal(t, &Fault{Code: "soap:Client", Reason: "bad"}, f)

	_, ok = DetectFault([]byte("<html>Bad Gateway</html>"))
	assert.False(t, ok)
	_, ok = DetectFault([]byte("not xml"))
	assert.False(t, ok)
	_, ok = DetectFault(spResponse("EnvioRPSResponse", "<x/>"))
	assert.False(t, ok)

	err := FaultError([]byte("raw"), &Fault{Reason: "bad"})
	assert.True(t, fiscalerr.IsKind(err, fiscalerr.KindUpstreamFault))
}

func TestParse_Unparseable(t *testing.T) {
	tests := map[string][]byte{
		"not xml":          []byte("<<<"),
		"not an envelope":  []byte("<html><body/></html>"),
		"no body":          []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"/>`),
		"unknown wrapper":  soap11(`<SomethingElse/>`),
		"no RetornoXML":    soap11(`<EnvioLoteRPSResponse/>`),
		"empty RetornoXML": soap11(`<EnvioLoteRPSResponse><RetornoXML>  </RetornoXML></EnvioLoteRPSResponse>`),
		"broken nested":    spResponse("EnvioLoteRPSResponse", "<Retorno a=>"),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBatch(raw)
			fe, ok := fiscalerr.As(err)
			require.True(t, ok)
			assert.Equal(t, fiscalerr.KindUpstreamResponseUnparseable, fe.Kind)
			assert.Equal(t, raw, fe.Raw)
		})
	}
}
