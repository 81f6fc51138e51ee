package nfe

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-fiscal/pkg/accesskey"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Environment codes (tpAmb)
const (
	TpAmbProduction   = 1
	TpAmbHomologation = 2
)

// Service literals (xServ)
const (
	ServQuery   = "CONSULTAR"
	ServStatus  = "STATUS"
	ServInutil  = "INUTILIZAR"
	DescCancel  = "Cancelamento"
	MinJustSize = 15
)

func newRoot(tag, version string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	root := doc.CreateElement(tag)
	root.CreateAttr("versao", version)
	root.CreateAttr("xmlns", Namespace)
	return doc, root
}

// EnviNFe wraps a signed NFe in the authorization batch message.
func EnviNFe(signedNFe, idLote, indSinc string) (string, error) {
	nfeDoc := etree.NewDocument()
	if err := nfeDoc.ReadFromString(signedNFe); err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindDocumentBuild, err, "signed NFe is not well-formed")
	}
	nfe := nfeDoc.Root()
	if nfe == nil || nfe.Tag != "NFe" {
		return "", fiscalerr.Build("nfe", "signed document has no NFe root")
	}

	doc, root := newRoot("enviNFe", Version)
	put(root, "idLote", idLote)
	put(root, "indSinc", indSinc)
	root.AddChild(nfe)
	return doc.WriteToString()
}

// ConsSitNFe builds the protocol query for an access key.
func ConsSitNFe(key string, tpAmb int) (string, error) {
	if err := accesskey.Validate(key); err != nil {
		return "", err
	}
	doc, root := newRoot("consSitNFe", Version)
	put(root, "tpAmb", strconv.Itoa(tpAmb))
	put(root, "xServ", ServQuery)
	put(root, "chNFe", key)
	return doc.WriteToString()
}

// ConsStatServ builds the service status query for a state.
func ConsStatServ(cUF string, tpAmb int) (string, error) {
	if cUF == "" {
		return "", fiscalerr.Build("cUF", "cUF is required")
	}
	doc, root := newRoot("consStatServ", Version)
	put(root, "tpAmb", strconv.Itoa(tpAmb))
	put(root, "cUF", cUF)
	put(root, "xServ", ServStatus)
	return doc.WriteToString()
}

// Inutilization voids a range of unused NF-e numbers.
type Inutilization struct {
	CUF    int
	TpAmb  int
	Year   int // two or four digits
	CNPJ   string
	Mod    int
	Serie  int
	NNFIni int
	NNFFin int
	XJust  string
}

// InutNFe builds the unsigned inutilization request and returns it with the
// Id of its infInut element.
func InutNFe(in Inutilization) (xml, id string, err error) {
	switch {
	case in.CUF == 0:
		return "", "", fiscalerr.Build("cUF", "cUF is required")
	case accesskey.OnlyDigits(in.CNPJ) == "":
		return "", "", fiscalerr.Build("CNPJ", "CNPJ is required")
	case in.Mod == 0:
		return "", "", fiscalerr.Build("mod", "mod is required")
	case in.NNFIni <= 0:
		return "", "", fiscalerr.Build("nNFIni", "nNFIni is required")
	case in.NNFFin < in.NNFIni:
		return "", "", fiscalerr.Build("nNFFin", "nNFFin must not be lower than nNFIni")
	case len([]rune(in.XJust)) < MinJustSize:
		return "", "", fiscalerr.Buildf("xJust", "xJust must have at least %d characters", MinJustSize)
	}

	id = accesskey.InutilizationID(accesskey.InutilizationParams{
		StateCode:   in.CUF,
		Year:        in.Year,
		CNPJ:        in.CNPJ,
		Model:       in.Mod,
		Series:      in.Serie,
		StartNumber: in.NNFIni,
		EndNumber:   in.NNFFin,
	})

	doc, root := newRoot("inutNFe", Version)
	inf := root.CreateElement("infInut")
	inf.CreateAttr("Id", id)
	put(inf, "tpAmb", strconv.Itoa(in.TpAmb))
	put(inf, "xServ", ServInutil)
	put(inf, "cUF", accesskey.PadLeft(strconv.Itoa(in.CUF), 2))
	put(inf, "ano", id[4:6])
	put(inf, "CNPJ", accesskey.PadLeft(accesskey.OnlyDigits(in.CNPJ), 14))
	put(inf, "mod", strconv.Itoa(in.Mod))
	put(inf, "serie", strconv.Itoa(in.Serie))
	put(inf, "nNFIni", strconv.Itoa(in.NNFIni))
	put(inf, "nNFFin", strconv.Itoa(in.NNFFin))
	put(inf, "xJust", in.XJust)

	xml, err = doc.WriteToString()
	return xml, id, err
}

// Cancellation is the 110111 event of an authorized NF-e.
type Cancellation struct {
	COrgao     string
	TpAmb      int
	CNPJ       string
	ChNFe      string
	DhEvento   string
	NSeqEvento int
	NProt      string
	XJust      string
	IDLote     string
}

// EnvEventoCancel builds the unsigned cancellation event batch and returns
// it with the Id of its infEvento element.
func EnvEventoCancel(c Cancellation) (xml, id string, err error) {
	if err := accesskey.Validate(c.ChNFe); err != nil {
		return "", "", err
	}
	switch {
	case c.NProt == "":
		return "", "", fiscalerr.Build("nProt", "nProt is required")
	case accesskey.OnlyDigits(c.CNPJ) == "":
		return "", "", fiscalerr.Build("CNPJ", "CNPJ is required")
	case len([]rune(c.XJust)) < MinJustSize:
		return "", "", fiscalerr.Buildf("xJust", "xJust must have at least %d characters", MinJustSize)
	case c.DhEvento == "":
		return "", "", fiscalerr.Build("dhEvento", "dhEvento is required")
	}
	seq := c.NSeqEvento
	if seq <= 0 {
		seq = 1
	}
	lote := c.IDLote
	if lote == "" {
		lote = "1"
	}
	orgao := c.COrgao
	if orgao == "" {
		orgao = accesskey.StateCode(c.ChNFe)
	}

	id = accesskey.EventID(accesskey.EventCancellation, c.ChNFe, seq)

	doc, root := newRoot("envEvento", EventVersion)
	put(root, "idLote", lote)
	ev := root.CreateElement("evento")
	ev.CreateAttr("versao", EventVersion)
	ev.CreateAttr("xmlns", Namespace)
	inf := ev.CreateElement("infEvento")
	inf.CreateAttr("Id", id)
	put(inf, "cOrgao", orgao)
	put(inf, "tpAmb", strconv.Itoa(c.TpAmb))
	put(inf, "CNPJ", accesskey.OnlyDigits(c.CNPJ))
	put(inf, "chNFe", c.ChNFe)
	put(inf, "dhEvento", c.DhEvento)
	put(inf, "tpEvento", accesskey.EventCancellation)
	put(inf, "nSeqEvento", strconv.Itoa(seq))
	put(inf, "verEvento", EventVersion)
	det := inf.CreateElement("detEvento")
	det.CreateAttr("versao", EventVersion)
	put(det, "descEvento", DescCancel)
	put(det, "nProt", c.NProt)
	put(det, "xJust", c.XJust)

	xml, err = doc.WriteToString()
	if err != nil {
		return "", "", fmt.Errorf("serializing envEvento: %w", err)
	}
	return xml, id, nil
}
