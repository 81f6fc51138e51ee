package response

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Fault is a SOAP 1.1 or 1.2 fault.
type Fault struct {
	Code   string
	Reason string
}

// unparseable reports a response that does not have the expected shape.
func unparseable(raw []byte, msg string, err error) *fiscalerr.Error {
	return &fiscalerr.Error{
		Kind:    fiscalerr.KindUpstreamResponseUnparseable,
		Message: msg,
		Raw:     raw,
		Err:     err,
	}
}

func faultError(raw []byte, f *Fault) *fiscalerr.Error {
	msg := f.Reason
	if msg == "" {
		msg = "SOAP fault without reason"
	}
	if f.Code != "" {
		msg = f.Code + ": " + msg
	}
	return &fiscalerr.Error{Kind: fiscalerr.KindUpstreamFault, Message: msg, Raw: raw}
}

// body parses raw as a SOAP envelope and returns its Body element. A fault
// in the body is reported as UPSTREAM_FAULT before anything else is read.
func body(raw []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, unparseable(raw, "response is not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, unparseable(raw, "response is not a SOAP envelope", nil)
	}
	b := child(root, "Body")
	if b == nil {
		return nil, unparseable(raw, "SOAP envelope has no Body", nil)
	}
	if f := fault(b); f != nil {
		return nil, faultError(raw, f)
	}
	return b, nil
}

func fault(b *etree.Element) *Fault {
	el := child(b, "Fault")
	if el == nil {
		return nil
	}
	f := &Fault{}
	// SOAP 1.1
	f.Code = text(el, "faultcode")
	f.Reason = text(el, "faultstring")
	// SOAP 1.2
	if f.Code == "" {
		f.Code = strings.TrimSpace(textOf(path(el, "Code", "Value")))
	}
	if f.Reason == "" {
		f.Reason = strings.TrimSpace(textOf(path(el, "Reason", "Text")))
	}
	if f.Reason == "" {
		f.Reason = text(el, "detail")
	}
	return f
}

func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.Text()
}

// DetectFault reports the SOAP fault carried by raw, if any. It is used
// on HTTP error bodies, where SOAP 1.1 servers return faults with status 500.
func DetectFault(raw []byte) (*Fault, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, false
	}
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, false
	}
	f := fault(child(root, "Body"))
	return f, f != nil
}

// FaultError returns the UPSTREAM_FAULT error for a fault found by
// [DetectFault].
func FaultError(raw []byte, f *Fault) error {
	return faultError(raw, f)
}

// payload returns the first Body child whose local name is one of names.
func payload(raw []byte, b *etree.Element, names ...string) (*etree.Element, error) {
	for _, n := range names {
		if el := child(b, n); el != nil {
			return el, nil
		}
	}
	got := "nothing"
	if els := b.ChildElements(); len(els) > 0 {
		got = els[0].Tag
	}
	return nil, unparseable(raw, "unexpected response wrapper "+got+", want "+strings.Join(names, " or "), nil)
}

// nested parses the document carried as text inside el, as in RetornoXML.
// Inline child elements are accepted as well.
func nested(raw []byte, el *etree.Element, name string) (*etree.Element, error) {
	if el == nil {
		return nil, unparseable(raw, name+" is missing", nil)
	}
	if els := el.ChildElements(); len(els) > 0 {
		return els[0], nil
	}
	s := strings.TrimSpace(el.Text())
	if s == "" {
		return nil, unparseable(raw, name+" is empty", nil)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, unparseable(raw, name+" is not well-formed XML", err)
	}
	if doc.Root() == nil {
		return nil, unparseable(raw, name+" has no root element", nil)
	}
	return doc.Root(), nil
}
