package nfe

import (
	"fmt"

	"github.com/beevik/etree"
	"golang.org/x/text/unicode/norm"

	"github.com/sirosfoundation/go-fiscal/pkg/accesskey"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Namespace is the NF-e document namespace.
const Namespace = "http://www.portalfiscal.inf.br/nfe"

// Versions of the documents produced by this package
const (
	Version      = "4.00"
	EventVersion = "1.00"
)

// Defaults applied when optional product members are absent
const (
	NoGTIN        = "SEM GTIN"
	DefaultIndTot = "1"
)

// builder appends schema-ordered elements and remembers the first missing
// required member.
type builder struct {
	err error
}

func (b *builder) fail(field, msg string) {
	if b.err == nil {
		b.err = fiscalerr.Build(field, msg)
	}
}

// req emits a required member.
func (b *builder) req(p *etree.Element, tag string, v Text, field string) {
	if v.Empty() {
		b.fail(field, field+" is required")
	}
	put(p, tag, v.String())
}

// reqDigits emits a required member keeping only its digits.
func (b *builder) reqDigits(p *etree.Element, tag string, v Text, field string) {
	if v.Empty() {
		b.fail(field, field+" is required")
	}
	put(p, tag, accesskey.OnlyDigits(v.String()))
}

func put(p *etree.Element, tag, v string) {
	p.CreateElement(tag).SetText(norm.NFC.String(v))
}

func opt(p *etree.Element, tag string, v Text) {
	if !v.Empty() {
		put(p, tag, v.String())
	}
}

func optPtr(p *etree.Element, tag string, v *Text) {
	if v != nil {
		put(p, tag, v.String())
	}
}

func optDigits(p *etree.Element, tag string, v Text) {
	if !v.Empty() {
		put(p, tag, accesskey.OnlyDigits(v.String()))
	}
}

func dec(p *etree.Element, tag string, d Decimal, places int) {
	put(p, tag, d.Format(places))
}

func optDec(p *etree.Element, tag string, d *Decimal, places int) {
	if d != nil {
		dec(p, tag, *d, places)
	}
}

// taxpayer emits CNPJ or, failing that, CPF.
func taxpayer(p *etree.Element, cnpj, cpf Text) {
	if !cnpj.Empty() {
		put(p, "CNPJ", accesskey.OnlyDigits(cnpj.String()))
	} else if !cpf.Empty() {
		put(p, "CPF", accesskey.OnlyDigits(cpf.String()))
	}
}

// BuildNFe renders the unsigned NFe element for the given access key. The
// infNFe element carries Id="NFe{key}", the reference the signature uses.
// The result has no XML declaration and no indentation.
func BuildNFe(n *NFe, key string) (string, error) {
	if n == nil {
		return "", fiscalerr.Build("nfe", "nfe is required")
	}
	if n.Ide == nil {
		return "", fiscalerr.Build("ide", "ide is required")
	}
	if n.Emit == nil {
		return "", fiscalerr.Build("emit", "emit is required")
	}
	if len(n.Det) == 0 {
		return "", fiscalerr.Build("det", "at least one det is required")
	}
	if n.Total == nil {
		return "", fiscalerr.Build("total", "total is required")
	}
	if n.Transp == nil {
		return "", fiscalerr.Build("transp", "transp is required")
	}
	if len(key) != accesskey.KeyLength {
		return "", fiscalerr.Build("chNFe", "access key must have exactly 44 digits")
	}

	b := &builder{}
	doc := etree.NewDocument()
	root := doc.CreateElement("NFe")
	root.CreateAttr("xmlns", Namespace)
	inf := root.CreateElement("infNFe")
	inf.CreateAttr("versao", Version)
	inf.CreateAttr("Id", "NFe"+key)

	b.ide(inf, n.Ide)
	b.emit(inf, n.Emit)
	if n.Avulsa != nil {
		b.avulsa(inf, n.Avulsa)
	}
	if n.Dest != nil {
		b.dest(inf, n.Dest)
	}
	if n.Retirada != nil {
		local(inf, "retirada", n.Retirada)
	}
	if n.Entrega != nil {
		local(inf, "entrega", n.Entrega)
	}
	for _, a := range n.AutXML {
		taxpayer(inf.CreateElement("autXML"), a.CNPJ, a.CPF)
	}
	for i := range n.Det {
		b.det(inf, &n.Det[i], i)
	}
	total(inf, n.Total)
	b.transp(inf, n.Transp)
	if n.Cobr != nil {
		cobr(inf, n.Cobr)
	}
	if n.Pag != nil {
		b.pag(inf, n.Pag)
	}
	if n.InfIntermed != nil {
		e := inf.CreateElement("infIntermed")
		b.reqDigits(e, "CNPJ", n.InfIntermed.CNPJ, "infIntermed.CNPJ")
		opt(e, "idCadIntTran", n.InfIntermed.IDCadIntTran)
	}
	if n.InfAdic != nil {
		e := inf.CreateElement("infAdic")
		opt(e, "infAdFisco", n.InfAdic.InfAdFisco)
		opt(e, "infCpl", n.InfAdic.InfCpl)
	}
	if n.Exporta != nil {
		e := inf.CreateElement("exporta")
		b.req(e, "UFSaidaPais", n.Exporta.UFSaidaPais, "exporta.UFSaidaPais")
		opt(e, "xLocExporta", n.Exporta.XLocExporta)
		opt(e, "xLocDespacho", n.Exporta.XLocDespacho)
	}
	if n.InfRespTec != nil {
		b.respTec(inf, n.InfRespTec)
	}

	if b.err != nil {
		return "", b.err
	}
	return doc.WriteToString()
}

func (b *builder) ide(p *etree.Element, ide *Ide) {
	e := p.CreateElement("ide")
	b.req(e, "cUF", ide.CUF, "ide.cUF")
	b.req(e, "cNF", ide.CNF, "ide.cNF")
	b.req(e, "natOp", ide.NatOp, "ide.natOp")
	b.req(e, "mod", ide.Mod, "ide.mod")
	b.req(e, "serie", ide.Serie, "ide.serie")
	b.req(e, "nNF", ide.NNF, "ide.nNF")
	b.req(e, "dhEmi", ide.DhEmi, "ide.dhEmi")
	opt(e, "dhSaiEnt", ide.DhSaiEnt)
	opt(e, "dPrevEntrega", ide.DPrevEntrega)
	b.req(e, "tpNF", ide.TpNF, "ide.tpNF")
	b.req(e, "idDest", ide.IdDest, "ide.idDest")
	b.req(e, "cMunFG", ide.CMunFG, "ide.cMunFG")
	opt(e, "cMunFGIBS", ide.CMunFGIBS)
	b.req(e, "tpImp", ide.TpImp, "ide.tpImp")
	b.req(e, "tpEmis", ide.TpEmis, "ide.tpEmis")
	b.req(e, "cDV", ide.CDV, "ide.cDV")
	b.req(e, "tpAmb", ide.TpAmb, "ide.tpAmb")
	b.req(e, "finNFe", ide.FinNFe, "ide.finNFe")
	b.req(e, "indFinal", ide.IndFinal, "ide.indFinal")
	b.req(e, "indPres", ide.IndPres, "ide.indPres")
	optPtr(e, "indIntermed", ide.IndIntermed)
	b.req(e, "procEmi", ide.ProcEmi, "ide.procEmi")
	b.req(e, "verProc", ide.VerProc, "ide.verProc")
	opt(e, "dhCont", ide.DhCont)
	opt(e, "xJust", ide.XJust)
	for i, ref := range ide.NFref {
		b.nfref(e, ref, i)
	}
}

func (b *builder) nfref(p *etree.Element, ref NFRef, i int) {
	e := p.CreateElement("NFref")
	opt(e, "refNFe", ref.RefNFe)
	opt(e, "refNFeSig", ref.RefNFeSig)
	if r := ref.RefNF; r != nil {
		field := fmt.Sprintf("ide.NFref[%d].refNF.", i)
		nf := e.CreateElement("refNF")
		b.req(nf, "cUF", r.CUF, field+"cUF")
		b.req(nf, "AAMM", r.AAMM, field+"AAMM")
		b.reqDigits(nf, "CNPJ", r.CNPJ, field+"CNPJ")
		b.req(nf, "mod", r.Mod, field+"mod")
		b.req(nf, "serie", r.Serie, field+"serie")
		b.req(nf, "nNF", r.NNF, field+"nNF")
	}
	opt(e, "refCTe", ref.RefCTe)
}

func address(p *etree.Element, a *Address) {
	opt(p, "xLgr", a.XLgr)
	opt(p, "nro", a.Nro)
	opt(p, "xCpl", a.XCpl)
	opt(p, "xBairro", a.XBairro)
	opt(p, "cMun", a.CMun)
	opt(p, "xMun", a.XMun)
	opt(p, "UF", a.UF)
	optDigits(p, "CEP", a.CEP)
	opt(p, "cPais", a.CPais)
	opt(p, "xPais", a.XPais)
	optDigits(p, "fone", a.Fone)
}

func local(p *etree.Element, tag string, l *Local) {
	e := p.CreateElement(tag)
	taxpayer(e, l.CNPJ, l.CPF)
	opt(e, "xNome", l.XNome)
	address(e, &l.Address)
	opt(e, "email", l.Email)
	opt(e, "IE", l.IE)
}

func (b *builder) emit(p *etree.Element, em *Emit) {
	e := p.CreateElement("emit")
	if em.CNPJ.Empty() && em.CPF.Empty() {
		b.fail("emit.CNPJ", "emit.CNPJ or emit.CPF is required")
	}
	taxpayer(e, em.CNPJ, em.CPF)
	b.req(e, "xNome", em.XNome, "emit.xNome")
	opt(e, "xFant", em.XFant)
	if em.EnderEmit != nil {
		address(e.CreateElement("enderEmit"), em.EnderEmit)
	}
	opt(e, "IE", em.IE)
	opt(e, "IEST", em.IEST)
	opt(e, "IM", em.IM)
	opt(e, "CNAE", em.CNAE)
	b.req(e, "CRT", em.CRT, "emit.CRT")
}

func (b *builder) avulsa(p *etree.Element, a *Avulsa) {
	e := p.CreateElement("avulsa")
	b.reqDigits(e, "CNPJ", a.CNPJ, "avulsa.CNPJ")
	b.req(e, "xOrgao", a.XOrgao, "avulsa.xOrgao")
	b.req(e, "matr", a.Matr, "avulsa.matr")
	b.req(e, "xAgente", a.XAgente, "avulsa.xAgente")
	opt(e, "fone", a.Fone)
	b.req(e, "UF", a.UF, "avulsa.UF")
	opt(e, "nDAR", a.NDAR)
	opt(e, "dEmi", a.DEmi)
	optDec(e, "vDAR", a.VDAR, 2)
	b.req(e, "repEmi", a.RepEmi, "avulsa.repEmi")
	opt(e, "dPag", a.DPag)
}

func (b *builder) dest(p *etree.Element, d *Dest) {
	e := p.CreateElement("dest")
	switch {
	case !d.CNPJ.Empty():
		put(e, "CNPJ", accesskey.OnlyDigits(d.CNPJ.String()))
	case !d.CPF.Empty():
		put(e, "CPF", accesskey.OnlyDigits(d.CPF.String()))
	case !d.IDEstrangeiro.Empty():
		put(e, "idEstrangeiro", d.IDEstrangeiro.String())
	}
	opt(e, "xNome", d.XNome)
	if d.EnderDest != nil {
		address(e.CreateElement("enderDest"), d.EnderDest)
	}
	b.req(e, "indIEDest", d.IndIEDest, "dest.indIEDest")
	opt(e, "IE", d.IE)
	opt(e, "ISUF", d.ISUF)
	opt(e, "IM", d.IM)
	opt(e, "email", d.Email)
}

func (b *builder) det(p *etree.Element, d *Det, i int) {
	e := p.CreateElement("det")
	item := d.NItem.Or(fmt.Sprint(i + 1))
	e.CreateAttr("nItem", item)
	field := fmt.Sprintf("det[%d].", i)

	if d.Prod == nil {
		b.fail(field+"prod", field+"prod is required")
		return
	}
	b.prod(e, d.Prod, field+"prod.")
	if d.Imposto != nil {
		b.imposto(e, d.Imposto, field+"imposto.")
	}
	if d.ImpostoDevol != nil {
		dv := e.CreateElement("impostoDevol")
		dec(dv, "pDevol", d.ImpostoDevol.PDevol, 2)
		dec(dv.CreateElement("IPI"), "vIPIDevol", d.ImpostoDevol.IPI.VIPIDevol, 2)
	}
	opt(e, "infAdProd", d.InfAdProd)
}

func (b *builder) prod(p *etree.Element, pr *Prod, field string) {
	e := p.CreateElement("prod")
	b.req(e, "cProd", pr.CProd, field+"cProd")
	put(e, "cEAN", pr.CEAN.Or(NoGTIN))
	b.req(e, "xProd", pr.XProd, field+"xProd")
	b.req(e, "NCM", pr.NCM, field+"NCM")
	opt(e, "NVE", pr.NVE)
	opt(e, "CEST", pr.CEST)
	opt(e, "indEscala", pr.IndEsc)
	optDigits(e, "CNPJFab", pr.CNPJFab)
	opt(e, "cBenef", pr.CBenef)
	opt(e, "EXTIPI", pr.EXTIPI)
	b.req(e, "CFOP", pr.CFOP, field+"CFOP")
	b.req(e, "uCom", pr.UCom, field+"uCom")
	dec(e, "qCom", pr.QCom, 4)
	dec(e, "vUnCom", pr.VUnCom, 10)
	dec(e, "vProd", pr.VProd, 2)
	put(e, "cEANTrib", pr.CEANTrib.Or(NoGTIN))
	put(e, "uTrib", pr.UTrib.Or(pr.UCom.String()))
	qTrib, vUnTrib := pr.QCom, pr.VUnCom
	if pr.QTrib != nil {
		qTrib = *pr.QTrib
	}
	if pr.VUnTrib != nil {
		vUnTrib = *pr.VUnTrib
	}
	dec(e, "qTrib", qTrib, 4)
	dec(e, "vUnTrib", vUnTrib, 10)
	optDec(e, "vFrete", pr.VFrete, 2)
	optDec(e, "vSeg", pr.VSeg, 2)
	optDec(e, "vDesc", pr.VDesc, 2)
	optDec(e, "vOutro", pr.VOutro, 2)
	put(e, "indTot", pr.IndTot.Or(DefaultIndTot))
	opt(e, "xPed", pr.XPed)
	opt(e, "nItemPed", pr.NItemPed)
	opt(e, "nFCI", pr.NFCI)
	for j, r := range pr.Rastro {
		rf := fmt.Sprintf("%srastro[%d].", field, j)
		re := e.CreateElement("rastro")
		b.req(re, "nLote", r.NLote, rf+"nLote")
		dec(re, "qLote", r.QLote, 3)
		b.req(re, "dFab", r.DFab, rf+"dFab")
		opt(re, "dVal", r.DVal)
		opt(re, "cAgreg", r.CAgreg)
	}
}

// icmsFields is the member order shared by every ICMS variant. A variant
// only carries the subset it defines.
var icmsFields = []string{
	"orig", "CST", "CSOSN", "modBC", "vBC", "pRedBC", "pICMS", "vICMS",
	"vBCFCPUFDest", "pFCPUFDest", "pICMSUFDest", "pICMSInter", "pICMSInterPart",
	"vFCPUFDest", "vICMSUFDest", "vICMSUFRemet",
	"modBCST", "pMVAST", "pRedBCST", "vBCST", "pICMSST", "vICMSST",
	"vBCFCPST", "pFCPST", "vFCPST",
	"vICMSDeson", "motDesICMS", "pRedBCEfet", "vBCEfet", "pICMSEfet", "vICMSEfet",
	"vICMSOp", "vICMSDif",
	"vBCSTRet", "pST", "vICMSSTRet", "vBCFCPSTRet", "pFCPSTRet", "vFCPSTRet",
	"pRedBCSTRet", "vBCSTDest", "vICMSSTDest", "vICMSSTDesonerado", "motDesICMSST",
	"vBCFCPDif", "pFCPDif", "vFCPDif", "vFCPEfet",
	"indSomaST",
}

// pisCofinsFields is the member order of the PIS and COFINS variants.
var pisCofinsFields = []string{"CST", "vBC", "pPIS", "pCOFINS", "qBCProd", "vAliqProd", "vPIS", "vCOFINS"}

func (b *builder) taxGroup(p *etree.Element, tag string, g *TaxGroup, order []string, field string) {
	if g.Name == "" {
		b.fail(field, field+" must name its variant")
		return
	}
	e := p.CreateElement(tag).CreateElement(g.Name)
	for _, f := range order {
		if v, ok := g.Fields[f]; ok {
			put(e, f, v.String())
		}
	}
}

func (b *builder) imposto(p *etree.Element, im *Imposto, field string) {
	e := p.CreateElement("imposto")
	optDec(e, "vTotTrib", im.VTotTrib, 2)
	if im.ICMS != nil {
		b.taxGroup(e, "ICMS", im.ICMS, icmsFields, field+"ICMS")
	}
	if iss := im.ISSQN; iss != nil {
		x := e.CreateElement("ISSQN")
		dec(x, "vBC", iss.VBC, 2)
		dec(x, "vAliq", iss.VAliq, 4)
		dec(x, "vISSQN", iss.VISSQN, 2)
		b.req(x, "cMunFG", iss.CMunFG, field+"ISSQN.cMunFG")
		b.req(x, "cListServ", iss.CListServ, field+"ISSQN.cListServ")
		optDec(x, "vDeducao", iss.VDeducao, 2)
		optDec(x, "vOutro", iss.VOutro, 2)
		optDec(x, "vDescIncond", iss.VDescIncond, 2)
		optDec(x, "vDescCond", iss.VDescCond, 2)
		optDec(x, "vISSRet", iss.VISSRet, 2)
		b.req(x, "indISS", iss.IndISS, field+"ISSQN.indISS")
		opt(x, "cServico", iss.CServico)
		opt(x, "cMun", iss.CMun)
		opt(x, "cPais", iss.CPais)
		opt(x, "nProcesso", iss.NProcesso)
		b.req(x, "indIncentivo", iss.IndIncentivo, field+"ISSQN.indIncentivo")
	}
	if ipi := im.IPI; ipi != nil {
		x := e.CreateElement("IPI")
		opt(x, "clEnq", ipi.ClEnq)
		optDigits(x, "CNPJProd", ipi.CNPJProd)
		opt(x, "cSelo", ipi.CSelo)
		optPtr(x, "qSelo", ipi.QSelo)
		opt(x, "cEnq", ipi.CEnq)
		item, tag := ipi.IPITrib, "IPITrib"
		if item == nil {
			item, tag = ipi.IPINT, "IPINT"
		}
		if item != nil {
			t := x.CreateElement(tag)
			optPtr(t, "CST", item.CST)
			optDec(t, "vBC", item.VBC, 2)
			optDec(t, "pIPI", item.PIPI, 4)
			optDec(t, "qUnid", item.QUnid, 4)
			optDec(t, "vUnid", item.VUnid, 4)
			optDec(t, "vIPI", item.VIPI, 2)
		}
	}
	if ii := im.II; ii != nil {
		x := e.CreateElement("II")
		dec(x, "vBC", ii.VBC, 2)
		dec(x, "vDespAdu", ii.VDespAdu, 2)
		dec(x, "vII", ii.VII, 2)
		dec(x, "vIOF", ii.VIOF, 2)
	}
	if im.PIS != nil {
		b.taxGroup(e, "PIS", im.PIS, pisCofinsFields, field+"PIS")
	}
	if ps := im.PISST; ps != nil {
		x := e.CreateElement("PISST")
		optDec(x, "vBC", ps.VBC, 2)
		optDec(x, "pPIS", ps.PPIS, 4)
		optDec(x, "qBCProd", ps.QBCProd, 4)
		optDec(x, "vAliqProd", ps.VAliqProd, 4)
		dec(x, "vPIS", ps.VPIS, 2)
		optPtr(x, "indSomaPISST", ps.IndSomaPISST)
	}
	if im.COFINS != nil {
		b.taxGroup(e, "COFINS", im.COFINS, pisCofinsFields, field+"COFINS")
	}
	if cs := im.COFINSST; cs != nil {
		x := e.CreateElement("COFINSST")
		optDec(x, "vBC", cs.VBC, 2)
		optDec(x, "pCOFINS", cs.PCOFINS, 4)
		optDec(x, "qBCProd", cs.QBCProd, 4)
		optDec(x, "vAliqProd", cs.VAliqProd, 4)
		dec(x, "vCOFINS", cs.VCOFINS, 2)
		optPtr(x, "indSomaCOFINSST", cs.IndSomaCOFINSST)
	}
}

func total(p *etree.Element, t *Total) {
	e := p.CreateElement("total")
	if v := t.ICMSTot; v != nil {
		x := e.CreateElement("ICMSTot")
		dec(x, "vBC", v.VBC, 2)
		dec(x, "vICMS", v.VICMS, 2)
		dec(x, "vICMSDeson", v.VICMSDeson, 2)
		optDec(x, "vFCPUFDest", v.VFCPUFDest, 2)
		optDec(x, "vICMSUFDest", v.VICMSUFDest, 2)
		optDec(x, "vICMSUFRemet", v.VICMSUFRemet, 2)
		dec(x, "vFCP", v.VFCP, 2)
		dec(x, "vBCST", v.VBCST, 2)
		dec(x, "vST", v.VST, 2)
		dec(x, "vFCPST", v.VFCPST, 2)
		dec(x, "vFCPSTRet", v.VFCPSTRet, 2)
		optDec(x, "qBCMono", v.QBCMono, 4)
		optDec(x, "vICMSMono", v.VICMSMono, 2)
		optDec(x, "qBCMonoReten", v.QBCMonoReten, 4)
		optDec(x, "vICMSMonoReten", v.VICMSMonoReten, 2)
		optDec(x, "qBCMonoRet", v.QBCMonoRet, 4)
		optDec(x, "vICMSMonoRet", v.VICMSMonoRet, 2)
		dec(x, "vProd", v.VProd, 2)
		dec(x, "vFrete", v.VFrete, 2)
		dec(x, "vSeg", v.VSeg, 2)
		dec(x, "vDesc", v.VDesc, 2)
		dec(x, "vII", v.VII, 2)
		dec(x, "vIPI", v.VIPI, 2)
		dec(x, "vIPIDevol", v.VIPIDevol, 2)
		dec(x, "vPIS", v.VPIS, 2)
		dec(x, "vCOFINS", v.VCOFINS, 2)
		dec(x, "vOutro", v.VOutro, 2)
		dec(x, "vNF", v.VNF, 2)
		optDec(x, "vTotTrib", v.VTotTrib, 2)
	}
	if v := t.ISSQNtot; v != nil {
		x := e.CreateElement("ISSQNtot")
		optDec(x, "vServ", v.VServ, 2)
		optDec(x, "vBC", v.VBC, 2)
		optDec(x, "vISS", v.VISS, 2)
		optDec(x, "vPIS", v.VPIS, 2)
		optDec(x, "vCOFINS", v.VCOFINS, 2)
		opt(x, "dCompet", v.DCompet)
		optDec(x, "vDeducao", v.VDeducao, 2)
		optDec(x, "vOutro", v.VOutro, 2)
		optDec(x, "vDescIncond", v.VDescIncond, 2)
		optDec(x, "vDescCond", v.VDescCond, 2)
		optDec(x, "vISSRet", v.VISSRet, 2)
		optPtr(x, "cRegTrib", v.CRegTrib)
	}
}

func (b *builder) transp(p *etree.Element, t *Transp) {
	e := p.CreateElement("transp")
	b.req(e, "modFrete", t.ModFrete, "transp.modFrete")
	if c := t.Transporta; c != nil {
		x := e.CreateElement("transporta")
		taxpayer(x, c.CNPJ, c.CPF)
		opt(x, "xNome", c.XNome)
		opt(x, "IE", c.IE)
		opt(x, "xEnder", c.XEnder)
		opt(x, "xMun", c.XMun)
		opt(x, "UF", c.UF)
	}
	if r := t.RetTransp; r != nil {
		x := e.CreateElement("retTransp")
		dec(x, "vServ", r.VServ, 2)
		dec(x, "vBCRet", r.VBCRet, 2)
		dec(x, "pICMSRet", r.PICMSRet, 4)
		dec(x, "vICMSRet", r.VICMSRet, 2)
		b.req(x, "CFOP", r.CFOP, "transp.retTransp.CFOP")
		b.req(x, "cMunFG", r.CMunFG, "transp.retTransp.cMunFG")
	}
	for _, v := range t.Vol {
		x := e.CreateElement("vol")
		optPtr(x, "qVol", v.QVol)
		opt(x, "esp", v.Esp)
		opt(x, "marca", v.Marca)
		opt(x, "nVol", v.NVol)
		optDec(x, "pesoL", v.PesoL, 3)
		optDec(x, "pesoB", v.PesoB, 3)
	}
}

func cobr(p *etree.Element, c *Cobr) {
	e := p.CreateElement("cobr")
	if f := c.Fat; f != nil {
		x := e.CreateElement("fat")
		opt(x, "nFat", f.NFat)
		optDec(x, "vOrig", f.VOrig, 2)
		optDec(x, "vDesc", f.VDesc, 2)
		optDec(x, "vLiq", f.VLiq, 2)
	}
	for _, d := range c.Dup {
		x := e.CreateElement("dup")
		opt(x, "nDup", d.NDup)
		opt(x, "dVenc", d.DVenc)
		dec(x, "vDup", d.VDup, 2)
	}
}

func (b *builder) pag(p *etree.Element, pg *Pag) {
	e := p.CreateElement("pag")
	for i, d := range pg.DetPag {
		x := e.CreateElement("detPag")
		optPtr(x, "indPag", d.IndPag)
		b.req(x, "tPag", d.TPag, fmt.Sprintf("pag.detPag[%d].tPag", i))
		dec(x, "vPag", d.VPag, 2)
		opt(x, "dEmi", d.DEmi)
		optDigits(x, "CNPJ", d.CNPJ)
		opt(x, "tBand", d.TBand)
		opt(x, "cAut", d.CAut)
		if c := d.Card; c != nil {
			ce := x.CreateElement("card")
			optDigits(ce, "CNPJ", c.CNPJ)
			opt(ce, "tBand", c.TBand)
			opt(ce, "cAut", c.CAut)
		}
	}
	optDec(e, "vTroco", pg.VTroco, 2)
}

func (b *builder) respTec(p *etree.Element, r *InfRespTec) {
	e := p.CreateElement("infRespTec")
	b.reqDigits(e, "CNPJ", r.CNPJ, "infRespTec.CNPJ")
	b.req(e, "xContato", r.XContato, "infRespTec.xContato")
	b.req(e, "email", r.Email, "infRespTec.email")
	b.reqDigits(e, "fone", r.Fone, "infRespTec.fone")
	if !r.IDCSRT.Empty() {
		put(e, "idCSRT", r.IDCSRT.String())
		put(e, "hashCSRT", r.HashCSRT.String())
	}
}
