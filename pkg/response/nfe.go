package response

import (
	"github.com/beevik/etree"
)

// NFeFamily selects the ret* document expected inside nfeResultMsg.
type NFeFamily string

// NF-e response families
const (
	FamilyAuthorization NFeFamily = "retEnviNFe"
	FamilyQuery         NFeFamily = "retConsSitNFe"
	FamilyInutilization NFeFamily = "retInutNFe"
	FamilyEvent         NFeFamily = "retEnvEvento"
	FamilyServiceStatus NFeFamily = "retConsStatServ"
)

// Accepted cStat values.
var (
	authorizedCodes   = codes("100", "150")
	cancelledCodes    = codes("101", "135", "155")
	inutilizedCodes   = codes("102")
	serviceUpCodes    = codes("107")
	lotAcceptedCodes  = codes("103", "104", "105")
	queryDocumentCode = codes("100", "101", "110", "150", "151", "155")
)

func codes(c ...string) map[string]bool {
	m := make(map[string]bool, len(c))
	for _, s := range c {
		m[s] = true
	}
	return m
}

// ParseNFe normalizes an NF-e 4.00 response of the given family. NF-e
// answers carry no error list, so rejections are reported through Success
// and the cStat of Status, Protocol or Events while Errors stays empty.
func ParseNFe(raw []byte, family NFeFamily) (*Result, error) {
	b, err := body(raw)
	if err != nil {
		return nil, err
	}
	msg, err := payload(raw, b, "nfeResultMsg")
	if err != nil {
		return nil, err
	}
	ret := child(msg, string(family))
	if ret == nil {
		// Some servers return the document escaped as text.
		ret, err = nested(raw, msg, "nfeResultMsg")
		if err != nil {
			return nil, err
		}
		if ret.Tag != string(family) {
			return nil, unparseable(raw, "unexpected document "+ret.Tag+" in nfeResultMsg, want "+string(family), nil)
		}
	}

	r := newResult()
	r.Version = attr(ret, "versao")
	switch family {
	case FamilyAuthorization:
		authorization(r, ret)
	case FamilyQuery:
		query(r, ret)
	case FamilyInutilization:
		inutilization(r, ret)
	case FamilyEvent:
		events(r, ret)
	case FamilyServiceStatus:
		r.Status = status(ret)
		r.Success = serviceUpCodes[r.Status.Code]
		r.Protocol = &Protocol{ReceivedAt: text(ret, "dhRecbto"), Status: *r.Status}
	default:
		return nil, unparseable(raw, "unknown NF-e response family "+string(family), nil)
	}
	return r, nil
}

func status(el *etree.Element) *Status {
	return &Status{Code: text(el, "cStat"), Reason: text(el, "xMotivo")}
}

func protocol(prot *etree.Element) *Protocol {
	inf := child(prot, "infProt")
	if inf == nil {
		return nil
	}
	return &Protocol{
		AccessKey:   text(inf, "chNFe"),
		Number:      text(inf, "nProt"),
		ReceivedAt:  text(inf, "dhRecbto"),
		DigestValue: text(inf, "digVal"),
		Status:      *status(inf),
	}
}

func authorization(r *Result, ret *etree.Element) {
	r.Status = status(ret)
	if p := protocol(child(ret, "protNFe")); p != nil {
		r.Protocol = p
		r.Success = authorizedCodes[p.Status.Code]
		r.DocumentKeys = append(r.DocumentKeys, DocumentKey{AccessKey: p.AccessKey})
		return
	}
	r.Success = lotAcceptedCodes[r.Status.Code]
	if rec := child(ret, "infRec"); rec != nil {
		r.LotInfo = &LotInfo{Protocol: text(rec, "nRec"), ReceivedAt: text(ret, "dhRecbto")}
	}
}

func query(r *Result, ret *etree.Element) {
	r.Status = status(ret)
	r.Success = queryDocumentCode[r.Status.Code]
	if key := text(ret, "chNFe"); key != "" {
		r.DocumentKeys = append(r.DocumentKeys, DocumentKey{AccessKey: key})
	}
	r.Protocol = protocol(child(ret, "protNFe"))
	for _, proc := range children(ret, "procEventoNFe") {
		if e := event(path(proc, "retEvento")); e != nil {
			r.Events = append(r.Events, *e)
		}
	}
}

func inutilization(r *Result, ret *etree.Element) {
	inf := child(ret, "infInut")
	if inf == nil {
		inf = ret
	}
	r.Status = status(inf)
	r.Success = inutilizedCodes[r.Status.Code]
	r.Protocol = &Protocol{
		Number:     text(inf, "nProt"),
		ReceivedAt: text(inf, "dhRecbto"),
		Status:     *r.Status,
	}
}

// events maps retEnvEvento. The batch succeeds when every registered
// event was accepted; each rejection stays on its own event status.
func events(r *Result, ret *etree.Element) {
	r.Status = status(ret)
	for _, re := range children(ret, "retEvento") {
		if e := event(re); e != nil {
			r.Events = append(r.Events, *e)
		}
	}
	if len(r.Events) == 0 {
		return
	}
	r.Success = true
	for _, e := range r.Events {
		if !cancelledCodes[e.Status.Code] {
			r.Success = false
		}
	}
}

func event(re *etree.Element) *Event {
	inf := child(re, "infEvento")
	if inf == nil {
		return nil
	}
	return &Event{
		Type:         text(inf, "tpEvento"),
		Sequence:     text(inf, "nSeqEvento"),
		AccessKey:    text(inf, "chNFe"),
		Protocol:     text(inf, "nProt"),
		RegisteredAt: text(inf, "dhRegEvento"),
		Status:       *status(inf),
	}
}
