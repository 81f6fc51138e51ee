package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sirosfoundation/go-fiscal/internal/keystore"
	"github.com/sirosfoundation/go-fiscal/pkg/accesskey"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
	"github.com/sirosfoundation/go-fiscal/pkg/nfe"
	"github.com/sirosfoundation/go-fiscal/pkg/response"
	"github.com/sirosfoundation/go-fiscal/pkg/scalar"
	"github.com/sirosfoundation/go-fiscal/pkg/security"
	"github.com/sirosfoundation/go-fiscal/pkg/transport"
)

// dhEvento is written in Brasília time.
var brasilia = time.FixedZone("BRT", -3*60*60)

const eventTimeLayout = "2006-01-02T15:04:05-07:00"

// EmitRequest asks for the authorization of one NF-e.
type EmitRequest struct {
	Ambiente string      `json:"ambiente"`
	NFe      *nfe.NFe    `json:"nfe"`
	IDLote   scalar.Text `json:"idLote,omitempty"`
	IndSinc  scalar.Text `json:"indSinc,omitempty"`
	Options
}

// QueryRequest asks for the situation of an NF-e by access key.
type QueryRequest struct {
	Ambiente string      `json:"ambiente"`
	ChNFe    scalar.Text `json:"chNFe"`
	CUF      scalar.Text `json:"cUF,omitempty"`
	Options
}

// CancelRequest asks for the cancellation event of an authorized NF-e.
type CancelRequest struct {
	Ambiente   string      `json:"ambiente"`
	ChNFe      scalar.Text `json:"chNFe"`
	NProt      scalar.Text `json:"nProt"`
	XJust      string      `json:"xJust"`
	CNPJ       scalar.Text `json:"CNPJ,omitempty"`
	DhEvento   string      `json:"dhEvento,omitempty"`
	NSeqEvento scalar.Text `json:"nSeqEvento,omitempty"`
	CUF        scalar.Text `json:"cUF,omitempty"`
	IDLote     scalar.Text `json:"idLote,omitempty"`
	Options
}

// InutilizeRequest asks to void a range of unused NF-e numbers.
type InutilizeRequest struct {
	Ambiente string      `json:"ambiente"`
	Ano      scalar.Text `json:"ano,omitempty"`
	CUF      scalar.Text `json:"cUF"`
	CNPJ     scalar.Text `json:"CNPJ,omitempty"`
	Mod      scalar.Text `json:"mod"`
	Serie    scalar.Text `json:"serie"`
	NNFIni   scalar.Text `json:"nNFIni"`
	NNFFin   scalar.Text `json:"nNFFin"`
	XJust    string      `json:"xJust"`
	Options
}

// StatusRequest asks for the availability of a state authorization service.
type StatusRequest struct {
	Ambiente string      `json:"ambiente"`
	CUF      scalar.Text `json:"cUF"`
	Options
}

// Emit computes the access key, signs the NF-e and submits it in an
// enviNFe batch of one document.
func (s *Service) Emit(ctx context.Context, apiKey string, req *EmitRequest) (*Outcome, error) {
	env, err := nfeEnvironment(req.Ambiente)
	if err != nil {
		return nil, err
	}
	if req.NFe == nil {
		return nil, missingField("nfe")
	}

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	doc, key, err := prepareNFe(req.NFe, env)
	if err != nil {
		return nil, err
	}
	unsigned, err := nfe.BuildNFe(doc, key.Value)
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(m, security.ProfileNFe, unsigned, "NFe"+key.Value)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("NF-e signed",
		slog.String("chave", key.Value),
		slog.Int("bytes", len(signed)))

	payload, err := nfe.EnviNFe(signed, req.IDLote.Or("1"), req.IndSinc.Or("1"))
	if err != nil {
		return nil, err
	}

	cUF := accesskey.PadLeft(doc.Ide.CUF.String(), 2)
	out, err := s.nfeCall(ctx, m, nfeCall{
		operation: "nfe.emit",
		service:   transport.ServiceAutorizacao,
		cUF:       cUF,
		env:       env,
		payload:   payload,
		family:    response.FamilyAuthorization,
	}, req.Options)
	if err != nil {
		return nil, err
	}
	out.AccessKey = key.Value
	return out, nil
}

// Query reads the situation of an NF-e. cUF defaults to the state encoded
// in the key.
func (s *Service) Query(ctx context.Context, apiKey string, req *QueryRequest) (*Outcome, error) {
	env, err := nfeEnvironment(req.Ambiente)
	if err != nil {
		return nil, err
	}
	key := req.ChNFe.String()
	if key == "" {
		return nil, missingField("chNFe")
	}
	if err := accesskey.Validate(key); err != nil {
		return nil, err
	}

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	payload, err := nfe.ConsSitNFe(key, env.TpAmb())
	if err != nil {
		return nil, err
	}
	return s.nfeCall(ctx, m, nfeCall{
		operation: "nfe.query",
		service:   transport.ServiceConsultaProtocolo,
		cUF:       req.CUF.Or(accesskey.StateCode(key)),
		env:       env,
		payload:   payload,
		family:    response.FamilyQuery,
	}, req.Options)
}

// Cancel registers the cancellation event (110111) of an authorized NF-e.
// The author CNPJ defaults to the tenant certificate.
func (s *Service) Cancel(ctx context.Context, apiKey string, req *CancelRequest) (*Outcome, error) {
	env, err := nfeEnvironment(req.Ambiente)
	if err != nil {
		return nil, err
	}
	switch {
	case req.ChNFe.Empty():
		return nil, missingField("chNFe")
	case req.NProt.Empty():
		return nil, missingField("nProt")
	case strings.TrimSpace(req.XJust) == "":
		return nil, missingField("xJust")
	}
	key := req.ChNFe.String()
	if err := accesskey.Validate(key); err != nil {
		return nil, err
	}
	seq := 1
	if !req.NSeqEvento.Empty() {
		if seq, err = number(req.NSeqEvento, "nSeqEvento"); err != nil {
			return nil, err
		}
	}

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	dh := req.DhEvento
	if dh == "" {
		dh = s.now().In(brasilia).Format(eventTimeLayout)
	}
	cUF := req.CUF.Or(accesskey.StateCode(key))

	unsigned, id, err := nfe.EnvEventoCancel(nfe.Cancellation{
		COrgao:     cUF,
		TpAmb:      env.TpAmb(),
		CNPJ:       req.CNPJ.Or(m.TaxpayerID),
		ChNFe:      key,
		DhEvento:   dh,
		NSeqEvento: seq,
		NProt:      req.NProt.String(),
		XJust:      req.XJust,
		IDLote:     req.IDLote.Or("1"),
	})
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(m, security.ProfileNFe, unsigned, id)
	if err != nil {
		return nil, err
	}

	out, err := s.nfeCall(ctx, m, nfeCall{
		operation: "nfe.cancel",
		service:   transport.ServiceRecepcaoEvento,
		cUF:       cUF,
		env:       env,
		payload:   signed,
		family:    response.FamilyEvent,
	}, req.Options)
	if err != nil {
		return nil, err
	}
	out.AccessKey = key
	return out, nil
}

// Inutilize voids a range of NF-e numbers. The year defaults to the
// current one and the CNPJ to the tenant certificate.
func (s *Service) Inutilize(ctx context.Context, apiKey string, req *InutilizeRequest) (*Outcome, error) {
	env, err := nfeEnvironment(req.Ambiente)
	if err != nil {
		return nil, err
	}
	cUF, err := number(req.CUF, "cUF")
	if err != nil {
		return nil, err
	}
	mod, err := number(req.Mod, "mod")
	if err != nil {
		return nil, err
	}
	serie, err := number(req.Serie, "serie")
	if err != nil {
		return nil, err
	}
	first, err := number(req.NNFIni, "nNFIni")
	if err != nil {
		return nil, err
	}
	last, err := number(req.NNFFin, "nNFFin")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.XJust) == "" {
		return nil, missingField("xJust")
	}
	year := s.now().In(brasilia).Year()
	if !req.Ano.Empty() {
		if year, err = number(req.Ano, "ano"); err != nil {
			return nil, err
		}
	}

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	unsigned, id, err := nfe.InutNFe(nfe.Inutilization{
		CUF:    cUF,
		TpAmb:  env.TpAmb(),
		Year:   year,
		CNPJ:   req.CNPJ.Or(m.TaxpayerID),
		Mod:    mod,
		Serie:  serie,
		NNFIni: first,
		NNFFin: last,
		XJust:  req.XJust,
	})
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(m, security.ProfileNFe, unsigned, id)
	if err != nil {
		return nil, err
	}

	return s.nfeCall(ctx, m, nfeCall{
		operation: "nfe.inutilize",
		service:   transport.ServiceInutilizacao,
		cUF:       accesskey.PadLeft(strconv.Itoa(cUF), 2),
		env:       env,
		payload:   signed,
		family:    response.FamilyInutilization,
	}, req.Options)
}

// ServiceStatus queries whether the authorization service of a state is
// operating. The request is not signed.
func (s *Service) ServiceStatus(ctx context.Context, apiKey string, req *StatusRequest) (*Outcome, error) {
	env, err := nfeEnvironment(req.Ambiente)
	if err != nil {
		return nil, err
	}
	if req.CUF.Empty() {
		return nil, missingField("cUF")
	}
	cUF := accesskey.PadLeft(req.CUF.String(), 2)

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	payload, err := nfe.ConsStatServ(cUF, env.TpAmb())
	if err != nil {
		return nil, err
	}
	return s.nfeCall(ctx, m, nfeCall{
		operation: "nfe.status",
		service:   transport.ServiceStatusServico,
		cUF:       cUF,
		env:       env,
		payload:   payload,
		family:    response.FamilyServiceStatus,
	}, req.Options)
}

type nfeCall struct {
	operation string
	service   transport.Service
	cUF       string
	env       transport.Environment
	payload   string
	family    response.NFeFamily
}

// nfeCall wraps payload in the SOAP 1.2 envelope of c.service and runs the
// exchange.
func (s *Service) nfeCall(ctx context.Context, m *keystore.Material, c nfeCall, opts Options) (*Outcome, error) {
	envelope, err := transport.NFeEnvelope(c.service, c.cUF, c.payload)
	if err != nil {
		return nil, fiscalerr.Wrap(fiscalerr.KindDocumentBuild, err, "building SOAP envelope")
	}
	endpoint, err := s.nfeEndpoint(c.service, c.cUF, c.env, opts.EndpointOverride)
	if err != nil {
		return nil, err
	}
	result, debug, err := s.roundTrip(ctx, m, exchange{
		operation:   c.operation,
		endpoint:    endpoint,
		envelope:    envelope,
		contentType: transport.ContentTypeSOAP12,
		parse: func(raw []byte) (*response.Result, error) {
			return response.ParseNFe(raw, c.family)
		},
	}, opts)
	if err != nil {
		return nil, err
	}
	return &Outcome{Success: true, Result: result, Soap: debug}, nil
}

// prepareNFe computes the access key of n and returns a copy of n whose
// ide carries cNF, cDV and the tpAmb of env.
func prepareNFe(n *nfe.NFe, env transport.Environment) (*nfe.NFe, accesskey.Key, error) {
	if n.Ide == nil {
		return nil, accesskey.Key{}, fiscalerr.Build("ide", "ide is required")
	}
	ide := *n.Ide

	cUF, err := number(ide.CUF, "ide.cUF")
	if err != nil {
		return nil, accesskey.Key{}, err
	}
	mod, err := number(ide.Mod, "ide.mod")
	if err != nil {
		return nil, accesskey.Key{}, err
	}
	serie, err := number(ide.Serie, "ide.serie")
	if err != nil {
		return nil, accesskey.Key{}, err
	}
	nNF, err := number(ide.NNF, "ide.nNF")
	if err != nil {
		return nil, accesskey.Key{}, err
	}
	tpEmis := 1
	if !ide.TpEmis.Empty() {
		if tpEmis, err = number(ide.TpEmis, "ide.tpEmis"); err != nil {
			return nil, accesskey.Key{}, err
		}
	}
	if ide.DhEmi.Empty() {
		return nil, accesskey.Key{}, fiscalerr.Build("ide.dhEmi", "ide.dhEmi is required")
	}
	taxpayer := n.Emit.TaxpayerID()
	if taxpayer == "" {
		return nil, accesskey.Key{}, fiscalerr.Build("emit.CNPJ", "emit.CNPJ or emit.CPF is required")
	}

	key, err := accesskey.Compute(accesskey.Params{
		StateCode:    cUF,
		EmissionDate: ide.DhEmi.String(),
		TaxpayerID:   taxpayer,
		Model:        mod,
		Series:       serie,
		Number:       nNF,
		EmissionType: tpEmis,
		RandomCode:   ide.CNF.String(),
	})
	if err != nil {
		return nil, accesskey.Key{}, err
	}

	ide.CNF = scalar.Text(key.RandomCode)
	ide.CDV = scalar.Text(strconv.Itoa(key.CheckDigit))
	ide.TpEmis = scalar.Text(strconv.Itoa(tpEmis))
	ide.TpAmb = scalar.Text(strconv.Itoa(env.TpAmb()))

	doc := *n
	doc.Ide = &ide
	return &doc, key, nil
}

// nfeEnvironment parses the mandatory ambiente of NF-e requests.
func nfeEnvironment(v string) (transport.Environment, error) {
	if strings.TrimSpace(v) == "" {
		e := fiscalerr.New(fiscalerr.KindMissingField, "ambiente is required (homologacao | producao)")
		e.Field = "ambiente"
		return "", e
	}
	env, err := transport.ParseEnvironment(v)
	if err != nil {
		return "", &fiscalerr.Error{Kind: fiscalerr.KindValidation, Field: "ambiente", Message: err.Error()}
	}
	return env, nil
}

func missingField(field string) error {
	e := fiscalerr.Newf(fiscalerr.KindMissingField, "%s is required", field)
	e.Field = field
	return e
}

// number parses a required integer member.
func number(v scalar.Text, field string) (int, error) {
	if v.Empty() {
		return 0, fiscalerr.Buildf(field, "%s is required", field)
	}
	n, err := v.Int()
	if err != nil {
		return 0, fiscalerr.Buildf(field, "%s must be an integer", field)
	}
	return n, nil
}
