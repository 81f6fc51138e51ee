package response

import (
	"github.com/beevik/etree"
)

// Response wrappers accepted for each São Paulo operation. Servers have
// been seen answering with either the Async suffix or without it.
var (
	batchWrappers     = []string{"EnvioLoteRPSResponseAsync", "EnvioLoteRPSResponse", "EnvioLoteRpsAsyncResponse"}
	testWrappers      = []string{"TesteEnvioLoteRPSResponseAsync", "TesteEnvioLoteRPSResponse"}
	rpsWrappers       = []string{"EnvioRPSResponse"}
	lotStatusWrappers = []string{"ConsultaSituacaoLoteResponse"}
)

// lotStatusNames names the Situacao codes of ConsultaSituacaoLote.
var lotStatusNames = map[string]string{
	"1": "recebido",
	"2": "em processamento",
	"3": "processado",
	"4": "processado com erro",
}

// ParseBatch normalizes an EnvioLoteRPS (asynchronous) response.
func ParseBatch(raw []byte) (*Result, error) {
	return parseRetorno(raw, batchWrappers)
}

// ParseTestBatch normalizes a TesteEnvioLoteRPS response.
func ParseTestBatch(raw []byte) (*Result, error) {
	return parseRetorno(raw, testWrappers)
}

// ParseRPS normalizes an EnvioRPS (synchronous) response.
func ParseRPS(raw []byte) (*Result, error) {
	return parseRetorno(raw, rpsWrappers)
}

func parseRetorno(raw []byte, wrappers []string) (*Result, error) {
	root, err := retornoXML(raw, wrappers)
	if err != nil {
		return nil, err
	}
	return retorno(root), nil
}

func retornoXML(raw []byte, wrappers []string) (*etree.Element, error) {
	b, err := body(raw)
	if err != nil {
		return nil, err
	}
	w, err := payload(raw, b, wrappers...)
	if err != nil {
		return nil, err
	}
	return nested(raw, child(w, "RetornoXML"), "RetornoXML")
}

// retorno maps a São Paulo Retorno* document.
func retorno(root *etree.Element) *Result {
	r := newResult()
	cab := child(root, "Cabecalho")

	r.Success = isTrue(text(cab, "Sucesso"))
	r.Version = attr(cab, "Versao")
	if r.Version == "" {
		r.Version = attr(root, "Versao")
	}
	r.Errors = messages(root, "Erro")
	r.Warnings = messages(root, "Alerta")
	r.LotInfo = lotInfo(cab)

	for _, k := range children(root, "ChaveNFeRPS") {
		r.DocumentKeys = append(r.DocumentKeys, documentKey(k))
	}
	return r
}

func lotInfo(cab *etree.Element) *LotInfo {
	inf := child(cab, "InformacoesLote")
	if inf == nil && cab == nil {
		return nil
	}
	li := &LotInfo{
		LotNumber:            firstText("NumeroLote", inf, cab),
		Protocol:             firstText("NumeroProtocolo", inf, cab),
		ProviderRegistration: firstText("InscricaoPrestador", inf, cab),
		SentAt:               firstText("DataEnvioLote", inf, cab),
		ReceivedAt:           firstText("DataRecebimento", inf, cab),
		ProcessedCount:       intPtr(firstText("QtdNotasProcessadas", inf, cab)),
		ProcessingTime:       intPtr(firstText("TempoProcessamento", inf, cab)),
		TotalServices:        floatPtr(firstText("ValorTotalServicos", inf, cab)),
		TotalDeductions:      floatPtr(firstText("ValorTotalDeducoes", inf, cab)),
	}
	if s := child(inf, "CPFCNPJRemetente"); s != nil {
		li.Sender = &TaxID{CNPJ: text(s, "CNPJ"), CPF: text(s, "CPF")}
	}
	if *li == (LotInfo{}) {
		return nil
	}
	return li
}

func documentKey(k *etree.Element) DocumentKey {
	nfe := child(k, "ChaveNFe")
	dk := DocumentKey{
		ProviderRegistration: text(nfe, "InscricaoPrestador"),
		DocumentNumber:       text(nfe, "NumeroNFe"),
		VerificationCode:     text(nfe, "CodigoVerificacao"),
	}
	if rps := child(k, "ChaveRPS"); rps != nil {
		dk.SourceKey = &SourceKey{
			ProviderRegistration: text(rps, "InscricaoPrestador"),
			Series:               text(rps, "SerieRPS"),
			Number:               text(rps, "NumeroRPS"),
		}
	}
	return dk
}

// ParseLotStatus normalizes a ConsultaSituacaoLote response. The lot
// outcome carried in ResultadoOperacao is parsed into Result.Operation;
// when it cannot be read Operation is left nil.
func ParseLotStatus(raw []byte) (*Result, error) {
	root, err := retornoXML(raw, lotStatusWrappers)
	if err != nil {
		return nil, err
	}
	cab := child(root, "Cabecalho")

	r := newResult()
	r.Success = isTrue(text(cab, "Sucesso"))
	r.Version = attr(cab, "Versao")
	r.Errors = messages(root, "Erro")
	r.Warnings = messages(root, "Alerta")

	li := &LotInfo{
		LotNumber:   firstText("NumeroLote", root, cab),
		ReceivedAt:  firstText("DataRecebimento", root, cab),
		ProcessedAt: firstText("DataProcessamento", root, cab),
	}
	if code := firstText("Situacao", root, cab); code != "" {
		name, ok := lotStatusNames[code]
		if !ok {
			name = "desconhecido"
		}
		li.Status = &LotStatus{Code: code, Name: name}
	}
	if *li != (LotInfo{}) {
		r.LotInfo = li
	}
	for _, k := range children(root, "ChaveNFeRPS") {
		r.DocumentKeys = append(r.DocumentKeys, documentKey(k))
	}

	op := child(root, "ResultadoOperacao")
	if op == nil {
		op = child(cab, "ResultadoOperacao")
	}
	if op != nil {
		if inner, err := nested(raw, op, "ResultadoOperacao"); err == nil {
			r.Operation = retorno(inner)
		}
	}
	return r, nil
}
