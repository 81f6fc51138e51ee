package nfse

import "github.com/sirosfoundation/go-fiscal/pkg/scalar"

type (
	Text    = scalar.Text
	Decimal = scalar.Decimal
)

// TaxID carries either a CNPJ or a CPF.
type TaxID struct {
	CNPJ Text `json:"cnpj,omitempty"`
	CPF  Text `json:"cpf,omitempty"`
}

// Empty reports whether neither identifier is set.
func (t *TaxID) Empty() bool {
	return t == nil || (t.CNPJ.Empty() && t.CPF.Empty())
}

// Request is the JSON body of the São Paulo batch operations.
type Request struct {
	LayoutVersion string `json:"layoutVersion"`
	Lote          *Lote  `json:"lote"`
	IncludeSoap   bool   `json:"includeSoap,omitempty"`
}

// Lote is a batch of RPS records with its header.
type Lote struct {
	Cabecalho *Cabecalho `json:"cabecalho"`
	RPS       []RPS      `json:"rps"`
}

// Cabecalho is the batch header.
type Cabecalho struct {
	CPFCNPJRemetente   *TaxID   `json:"cpfCnpjRemetente"`
	Transacao          *bool    `json:"transacao,omitempty"`
	DtInicio           Text     `json:"dtInicio"`
	DtFim              Text     `json:"dtFim"`
	QtdRPS             *int     `json:"qtdRPS"`
	ValorTotalServicos *Decimal `json:"valorTotalServicos"`
	ValorTotalDeducoes *Decimal `json:"valorTotalDeducoes,omitempty"`
}

// ChaveRPS identifies an RPS by provider registration, series and number.
type ChaveRPS struct {
	InscricaoPrestador Text `json:"inscricaoPrestador"`
	SerieRPS           Text `json:"serieRPS"`
	NumeroRPS          Text `json:"numeroRPS"`
}

// Endereco is the payer address.
type Endereco struct {
	TipoLogradouro      Text `json:"tipoLogradouro,omitempty"`
	Logradouro          Text `json:"logradouro,omitempty"`
	NumeroEndereco      Text `json:"numeroEndereco,omitempty"`
	ComplementoEndereco Text `json:"complementoEndereco,omitempty"`
	Bairro              Text `json:"bairro,omitempty"`
	Cidade              Text `json:"cidade,omitempty"`
	UF                  Text `json:"uf,omitempty"`
	CEP                 Text `json:"cep,omitempty"`
}

// RPS is one provisional service receipt.
type RPS struct {
	// Assinatura is the base64 positional signature, filled in before the
	// document is built.
	Assinatura string `json:"-"`

	ChaveRPS         *ChaveRPS `json:"chaveRPS"`
	TipoRPS          Text      `json:"tipoRPS"`
	DataEmissao      Text      `json:"dataEmissao"`
	StatusRPS        Text      `json:"statusRPS"`
	TributacaoRPS    Text      `json:"tributacaoRPS"`
	ValorServicos    *Decimal  `json:"valorServicos"`
	ValorDeducoes    *Decimal  `json:"valorDeducoes"`
	ValorPIS         *Decimal  `json:"valorPIS,omitempty"`
	ValorCOFINS      *Decimal  `json:"valorCOFINS,omitempty"`
	ValorINSS        *Decimal  `json:"valorINSS,omitempty"`
	ValorIR          *Decimal  `json:"valorIR,omitempty"`
	ValorCSLL        *Decimal  `json:"valorCSLL,omitempty"`
	CodigoServico    Text      `json:"codigoServico"`
	AliquotaServicos *Decimal  `json:"aliquotaServicos"`
	ISSRetido        *bool     `json:"issRetido"`

	CPFCNPJTomador            *TaxID    `json:"cpfCnpjTomador,omitempty"`
	InscricaoMunicipalTomador Text      `json:"inscricaoMunicipalTomador,omitempty"`
	InscricaoEstadualTomador  Text      `json:"inscricaoEstadualTomador,omitempty"`
	RazaoSocialTomador        Text      `json:"razaoSocialTomador,omitempty"`
	EnderecoTomador           *Endereco `json:"enderecoTomador,omitempty"`
	EmailTomador              Text      `json:"emailTomador,omitempty"`

	CPFCNPJIntermediario            *TaxID `json:"cpfCnpjIntermediario,omitempty"`
	InscricaoMunicipalIntermediario Text   `json:"inscricaoMunicipalIntermediario,omitempty"`
	ISSRetidoIntermediario          *bool  `json:"issRetidoIntermediario,omitempty"`
	EmailIntermediario              Text   `json:"emailIntermediario,omitempty"`

	Discriminacao Text `json:"discriminacao"`

	ValorCargaTributaria      *Decimal `json:"valorCargaTributaria,omitempty"`
	PercentualCargaTributaria *Decimal `json:"percentualCargaTributaria,omitempty"`
	FonteCargaTributaria      Text     `json:"fonteCargaTributaria,omitempty"`
	CodigoCEI                 Text     `json:"codigoCEI,omitempty"`
	MatriculaObra             Text     `json:"matriculaObra,omitempty"`
	MunicipioPrestacao        Text     `json:"municipioPrestacao,omitempty"`
	NumeroEncapsulamento      Text     `json:"numeroEncapsulamento,omitempty"`
	ValorTotalRecebido        *Decimal `json:"valorTotalRecebido,omitempty"`
}

// LotStatusRequest is the JSON body of the lot status query.
type LotStatusRequest struct {
	LayoutVersion    string `json:"layoutVersion"`
	CPFCNPJRemetente *TaxID `json:"cpfCnpjRemetente"`
	NumeroProtocolo  Text   `json:"numeroProtocolo"`
	IncludeSoap      bool   `json:"includeSoap,omitempty"`
}
