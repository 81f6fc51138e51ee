package response

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Message is an error or warning reported by the tax authority.
type Message struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// SourceKey identifies the RPS a municipal invoice was generated from.
type SourceKey struct {
	ProviderRegistration string `json:"providerRegistration,omitempty"`
	Series               string `json:"series,omitempty"`
	Number               string `json:"number,omitempty"`
}

// DocumentKey identifies a document generated by the tax authority.
type DocumentKey struct {
	ProviderRegistration string     `json:"providerRegistration,omitempty"`
	DocumentNumber       string     `json:"documentNumber,omitempty"`
	VerificationCode     string     `json:"verificationCode,omitempty"`
	AccessKey            string     `json:"accessKey,omitempty"`
	SourceKey            *SourceKey `json:"sourceKey,omitempty"`
}

// TaxID is a CNPJ or CPF.
type TaxID struct {
	CNPJ string `json:"cnpj,omitempty"`
	CPF  string `json:"cpf,omitempty"`
}

// LotStatus is the processing state of an NFS-e lot.
type LotStatus struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LotInfo describes a submitted lot.
type LotInfo struct {
	LotNumber            string     `json:"lotNumber,omitempty"`
	Protocol             string     `json:"protocol,omitempty"`
	ProviderRegistration string     `json:"providerRegistration,omitempty"`
	Sender               *TaxID     `json:"sender,omitempty"`
	SentAt               string     `json:"sentAt,omitempty"`
	ReceivedAt           string     `json:"receivedAt,omitempty"`
	ProcessedAt          string     `json:"processedAt,omitempty"`
	ProcessedCount       *int       `json:"processedCount,omitempty"`
	ProcessingTime       *int       `json:"processingTime,omitempty"`
	TotalServices        *float64   `json:"totalServices,omitempty"`
	TotalDeductions      *float64   `json:"totalDeductions,omitempty"`
	Status               *LotStatus `json:"status,omitempty"`
}

// Status is an NF-e cStat / xMotivo pair.
type Status struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Protocol is an NF-e authorization or inutilization protocol.
type Protocol struct {
	AccessKey   string `json:"accessKey,omitempty"`
	Number      string `json:"number,omitempty"`
	ReceivedAt  string `json:"receivedAt,omitempty"`
	DigestValue string `json:"digestValue,omitempty"`
	Status      Status `json:"status"`
}

// Event is the registration result of an NF-e event.
type Event struct {
	Type         string `json:"type,omitempty"`
	Sequence     string `json:"sequence,omitempty"`
	AccessKey    string `json:"accessKey,omitempty"`
	Protocol     string `json:"protocol,omitempty"`
	RegisteredAt string `json:"registeredAt,omitempty"`
	Status       Status `json:"status"`
}

// Result is the canonical shape every tax authority response is normalized
// into. Success is taken from the response header as reported; Errors is
// filled independently and may be non-empty while Success is true.
type Result struct {
	Success      bool          `json:"success"`
	Version      string        `json:"version,omitempty"`
	Status       *Status       `json:"status,omitempty"`
	Errors       []Message     `json:"errors"`
	Warnings     []Message     `json:"warnings"`
	LotInfo      *LotInfo      `json:"lotInfo,omitempty"`
	DocumentKeys []DocumentKey `json:"documentKeys"`
	Protocol     *Protocol     `json:"protocol,omitempty"`
	Events       []Event       `json:"events,omitempty"`

	// Operation is the parsed ResultadoOperacao of a lot status query.
	Operation *Result `json:"operationResult,omitempty"`
}

func newResult() *Result {
	return &Result{
		Errors:       []Message{},
		Warnings:     []Message{},
		DocumentKeys: []DocumentKey{},
	}
}

// child returns the first child element of el named name, ignoring any
// namespace prefix.
func child(el *etree.Element, name string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == name {
			return c
		}
	}
	return nil
}

// children returns every child element of el named name. A single
// occurrence and repeated occurrences both yield a slice.
func children(el *etree.Element, name string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == name {
			out = append(out, c)
		}
	}
	return out
}

// path follows names from el.
func path(el *etree.Element, names ...string) *etree.Element {
	for _, n := range names {
		el = child(el, n)
		if el == nil {
			return nil
		}
	}
	return el
}

func text(el *etree.Element, name string) string {
	c := child(el, name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

// firstText returns the first non-empty name value among els.
func firstText(name string, els ...*etree.Element) string {
	for _, el := range els {
		if v := text(el, name); v != "" {
			return v
		}
	}
	return ""
}

func attr(el *etree.Element, name string) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue(name, "")
}

func isTrue(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func intPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func floatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func messages(el *etree.Element, name string) []Message {
	out := []Message{}
	for _, m := range children(el, name) {
		out = append(out, Message{Code: text(m, "Codigo"), Description: text(m, "Descricao")})
	}
	return out
}
