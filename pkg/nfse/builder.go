package nfse

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"golang.org/x/text/unicode/norm"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Namespaces of the São Paulo messages.
const (
	Namespace      = "http://www.prefeitura.sp.gov.br/nfe"
	NamespaceTipos = "http://www.prefeitura.sp.gov.br/nfe/tipos"
	NamespaceDSig  = "http://www.w3.org/2000/09/xmldsig#"
	HeaderVersion  = "1"
)

func put(p *etree.Element, tag, value string) {
	p.CreateElement(tag).SetText(norm.NFC.String(value))
}

func opt(p *etree.Element, tag string, v Text) {
	if !v.Empty() {
		put(p, tag, v.String())
	}
}

func money(p *etree.Element, tag string, d *Decimal) {
	var v Decimal
	if d != nil {
		v = *d
	}
	put(p, tag, v.Format(2))
}

func optMoney(p *etree.Element, tag string, d *Decimal, places int) {
	if d != nil {
		put(p, tag, d.Format(places))
	}
}

func boolText(v bool) string {
	return strconv.FormatBool(v)
}

func newRoot(tag string, withDSig bool) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(tag)
	root.CreateAttr("xmlns", Namespace)
	root.CreateAttr("xmlns:tipos", NamespaceTipos)
	if withDSig {
		root.CreateAttr("xmlns:ds", NamespaceDSig)
	}
	return doc, root
}

// unqualified creates a child that resets the default namespace, as the
// municipal schema declares its local elements unqualified.
func unqualified(p *etree.Element, tag string) *etree.Element {
	e := p.CreateElement(tag)
	e.CreateAttr("xmlns", "")
	return e
}

func header(root *etree.Element) *etree.Element {
	h := root.CreateElement("Cabecalho")
	h.CreateAttr("Versao", HeaderVersion)
	h.CreateAttr("xmlns", "")
	return h
}

func taxID(p *etree.Element, tag string, t *TaxID) {
	e := p.CreateElement(tag)
	if !t.CNPJ.Empty() {
		put(e, "CNPJ", t.CNPJ.String())
		return
	}
	put(e, "CPF", t.CPF.String())
}

// BuildLoteRPS builds the unsigned PedidoEnvioLoteRPS. Each RPS must
// already carry its Assinatura.
func BuildLoteRPS(l *Lote) (string, error) {
	if err := ValidateBatch(l); err != nil {
		return "", err
	}
	c := l.Cabecalho

	doc, root := newRoot("PedidoEnvioLoteRPS", true)
	h := header(root)
	taxID(h, "CPFCNPJRemetente", c.CPFCNPJRemetente)
	transacao := true
	if c.Transacao != nil {
		transacao = *c.Transacao
	}
	put(h, "transacao", boolText(transacao))
	put(h, "dtInicio", c.DtInicio.String())
	put(h, "dtFim", c.DtFim.String())
	put(h, "QtdRPS", strconv.Itoa(*c.QtdRPS))
	money(h, "ValorTotalServicos", c.ValorTotalServicos)
	optMoney(h, "ValorTotalDeducoes", c.ValorTotalDeducoes, 2)

	for i := range l.RPS {
		if err := rps(root, &l.RPS[i], i); err != nil {
			return "", err
		}
	}
	return doc.WriteToString()
}

// BuildEnvioRPS builds the unsigned PedidoEnvioRPS of the synchronous
// service.
func BuildEnvioRPS(l *Lote) (string, error) {
	if err := ValidateSingle(l); err != nil {
		return "", err
	}
	doc, root := newRoot("PedidoEnvioRPS", true)
	h := header(root)
	taxID(h, "CPFCNPJRemetente", l.Cabecalho.CPFCNPJRemetente)
	if err := rps(root, &l.RPS[0], 0); err != nil {
		return "", err
	}
	return doc.WriteToString()
}

// BuildConsultaSituacaoLote builds the lot status query.
func BuildConsultaSituacaoLote(q *LotStatusRequest) (string, error) {
	if err := ValidateLotStatus(q); err != nil {
		return "", err
	}
	doc, root := newRoot("PedidoConsultaSituacaoLote", false)
	s := unqualified(root, "CPFCNPJRemetente")
	if !q.CPFCNPJRemetente.CNPJ.Empty() {
		put(s, "CNPJ", q.CPFCNPJRemetente.CNPJ.String())
	} else {
		put(s, "CPF", q.CPFCNPJRemetente.CPF.String())
	}
	unqualified(root, "NumeroProtocolo").SetText(q.NumeroProtocolo.String())
	return doc.WriteToString()
}

func rps(root *etree.Element, r *RPS, i int) error {
	if r.Assinatura == "" {
		return fiscalerr.Build(fmt.Sprintf("lote.rps[%d].assinatura", i),
			fmt.Sprintf("RPS %d: assinatura is missing", i+1))
	}
	e := unqualified(root, "RPS")
	put(e, "Assinatura", r.Assinatura)

	k := e.CreateElement("ChaveRPS")
	put(k, "InscricaoPrestador", r.ChaveRPS.InscricaoPrestador.String())
	put(k, "SerieRPS", r.ChaveRPS.SerieRPS.String())
	put(k, "NumeroRPS", r.ChaveRPS.NumeroRPS.String())

	put(e, "TipoRPS", r.TipoRPS.String())
	put(e, "DataEmissao", r.DataEmissao.String())
	put(e, "StatusRPS", r.StatusRPS.String())
	put(e, "TributacaoRPS", r.TributacaoRPS.String())
	money(e, "ValorServicos", r.ValorServicos)
	money(e, "ValorDeducoes", r.ValorDeducoes)
	optMoney(e, "ValorPIS", r.ValorPIS, 2)
	optMoney(e, "ValorCOFINS", r.ValorCOFINS, 2)
	optMoney(e, "ValorINSS", r.ValorINSS, 2)
	optMoney(e, "ValorIR", r.ValorIR, 2)
	optMoney(e, "ValorCSLL", r.ValorCSLL, 2)
	put(e, "CodigoServico", r.CodigoServico.String())
	put(e, "AliquotaServicos", r.AliquotaServicos.Format(4))
	put(e, "ISSRetido", boolText(*r.ISSRetido))

	if !r.CPFCNPJTomador.Empty() {
		taxID(e, "CPFCNPJTomador", r.CPFCNPJTomador)
	}
	opt(e, "InscricaoMunicipalTomador", r.InscricaoMunicipalTomador)
	opt(e, "InscricaoEstadualTomador", r.InscricaoEstadualTomador)
	opt(e, "RazaoSocialTomador", r.RazaoSocialTomador)
	if a := r.EnderecoTomador; a != nil {
		x := e.CreateElement("EnderecoTomador")
		opt(x, "TipoLogradouro", a.TipoLogradouro)
		opt(x, "Logradouro", a.Logradouro)
		opt(x, "NumeroEndereco", a.NumeroEndereco)
		opt(x, "ComplementoEndereco", a.ComplementoEndereco)
		opt(x, "Bairro", a.Bairro)
		opt(x, "Cidade", a.Cidade)
		opt(x, "UF", a.UF)
		opt(x, "CEP", a.CEP)
	}
	opt(e, "EmailTomador", r.EmailTomador)

	if !r.CPFCNPJIntermediario.Empty() {
		taxID(e, "CPFCNPJIntermediario", r.CPFCNPJIntermediario)
	}
	opt(e, "InscricaoMunicipalIntermediario", r.InscricaoMunicipalIntermediario)
	if r.ISSRetidoIntermediario != nil {
		put(e, "ISSRetidoIntermediario", boolText(*r.ISSRetidoIntermediario))
	}
	opt(e, "EmailIntermediario", r.EmailIntermediario)

	put(e, "Discriminacao", r.Discriminacao.String())

	optMoney(e, "ValorCargaTributaria", r.ValorCargaTributaria, 2)
	optMoney(e, "PercentualCargaTributaria", r.PercentualCargaTributaria, 2)
	opt(e, "FonteCargaTributaria", r.FonteCargaTributaria)
	opt(e, "CodigoCEI", r.CodigoCEI)
	opt(e, "MatriculaObra", r.MatriculaObra)
	opt(e, "MunicipioPrestacao", r.MunicipioPrestacao)
	opt(e, "NumeroEncapsulamento", r.NumeroEncapsulamento)
	optMoney(e, "ValorTotalRecebido", r.ValorTotalRecebido, 2)
	return nil
}
