package transport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Namespace constants
const (
	NsSOAP11   = "http://schemas.xmlsoap.org/soap/envelope/"
	NsSOAP12   = "http://www.w3.org/2003/05/soap-envelope"
	NsXSI      = "http://www.w3.org/2001/XMLSchema-instance"
	NsXSD      = "http://www.w3.org/2001/XMLSchema"
	NsNFSeSP   = "http://www.prefeitura.sp.gov.br/nfe"
	NFeVersion = "4.00"
)

// Content types
const (
	ContentTypeSOAP12 = "application/soap+xml; charset=utf-8"
	ContentTypeSOAP11 = "text/xml; charset=utf-8"
)

// newEnvelope starts a document whose root is prefix:Envelope carrying the
// namespace declarations in order.
func newEnvelope(prefix string, decls ...[2]string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement(prefix + ":Envelope")
	for _, d := range decls {
		env.CreateAttr(d[0], d[1])
	}
	return doc, env
}

// NFeEnvelope wraps payload in the SOAP 1.2 envelope of service. The
// header carries the UF code; the payload root is embedded without its XML
// declaration.
func NFeEnvelope(service Service, cUF, payload string) ([]byte, error) {
	if !service.Valid() {
		return nil, fmt.Errorf("unknown NF-e service %q", service)
	}
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("empty payload")
	}
	inner := etree.NewDocument()
	if err := inner.ReadFromString(payload); err != nil {
		return nil, fmt.Errorf("payload is not well-formed: %w", err)
	}
	msg := inner.Root()
	if msg == nil {
		return nil, fmt.Errorf("payload has no root element")
	}

	doc, env := newEnvelope("soap12",
		[2]string{"xmlns:xsi", NsXSI},
		[2]string{"xmlns:xsd", NsXSD},
		[2]string{"xmlns:soap12", NsSOAP12})

	cabec := env.CreateElement("soap12:Header").CreateElement("nfeCabecMsg")
	cabec.CreateAttr("xmlns", service.Namespace())
	cabec.CreateElement("cUF").SetText(cUF)
	cabec.CreateElement("versaoDados").SetText(NFeVersion)

	dados := env.CreateElement("soap12:Body").CreateElement("nfeDadosMsg")
	dados.CreateAttr("xmlns", service.Namespace())
	dados.AddChild(msg)
	return writeEnvelope(doc)
}

// Operation is a São Paulo NFS-e web service operation.
type Operation struct {
	Name       string
	SOAPAction string

	// Sync operations live on the synchronous endpoint, whose WSDL spells
	// the schema version field VersaoSchema.
	Sync bool
}

// São Paulo NFS-e operations
var (
	OpEnvioLoteRPS = Operation{
		Name:       "EnvioLoteRPS",
		SOAPAction: "http://www.prefeitura.sp.gov.br/nfe/ws/envioLoteRPSAsync",
	}
	OpTesteEnvioLoteRPS = Operation{
		Name:       "TesteEnvioLoteRPS",
		SOAPAction: "http://www.prefeitura.sp.gov.br/nfe/ws/testeEnvioLoteRPSAsync",
	}
	OpConsultaSituacaoLote = Operation{
		Name:       "ConsultaSituacaoLote",
		SOAPAction: "http://www.prefeitura.sp.gov.br/nfe/ws/consultaSituacaoLote",
	}
	OpEnvioRPS = Operation{
		Name:       "EnvioRPS",
		SOAPAction: "http://www.prefeitura.sp.gov.br/nfe/ws/envioRPS",
		Sync:       true,
	}
)

// SchemaVersionField returns the element name of the schema version field.
func (o Operation) SchemaVersionField() string {
	if o.Sync {
		return "VersaoSchema"
	}
	return "versaoSchema"
}

// NFSeEnvelope wraps a signed São Paulo request in the SOAP 1.1 envelope of
// op. The request travels as a CDATA section of MensagemXML.
func NFSeEnvelope(op Operation, schemaVersion int, message string) ([]byte, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("operation name is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("empty message")
	}
	doc, env := newEnvelope("soap",
		[2]string{"xmlns:soap", NsSOAP11},
		[2]string{"xmlns:xsi", NsXSI},
		[2]string{"xmlns:xsd", NsXSD})

	req := env.CreateElement("soap:Body").CreateElement(op.Name + "Request")
	req.CreateAttr("xmlns", NsNFSeSP)
	req.CreateElement(op.SchemaVersionField()).SetText(strconv.Itoa(schemaVersion))
	req.CreateElement("MensagemXML").AddChild(etree.NewCData(message))
	return writeEnvelope(doc)
}

func writeEnvelope(doc *etree.Document) ([]byte, error) {
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize envelope: %w", err)
	}
	return out, nil
}
