package service

import (
	"context"
	"strings"

	"github.com/sirosfoundation/go-fiscal/internal/keystore"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
	"github.com/sirosfoundation/go-fiscal/pkg/nfse"
	"github.com/sirosfoundation/go-fiscal/pkg/response"
	"github.com/sirosfoundation/go-fiscal/pkg/security"
	"github.com/sirosfoundation/go-fiscal/pkg/transport"
)

// schemaVersion is the versaoSchema sent with every São Paulo request.
const schemaVersion = 1

// Send methods of the São Paulo batch route
const (
	MethodAsync = "assincrono"
	MethodSync  = "sincrono"
)

// BatchRequest carries RPS to São Paulo. An empty Ambiente means
// production; "teste" selects the configured test endpoints.
type BatchRequest struct {
	nfse.Request
	Ambiente string `json:"ambiente,omitempty"`
	Metodo   string `json:"metodo,omitempty"`
}

// LotStatusRequest queries the processing situation of a São Paulo lot.
type LotStatusRequest struct {
	nfse.LotStatusRequest
	Ambiente string `json:"ambiente,omitempty"`
}

// Submit sends req with the method it names: a single RPS on the
// synchronous service or a lot on the asynchronous one.
func (s *Service) Submit(ctx context.Context, apiKey string, req *BatchRequest) (*Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(req.Metodo)) {
	case "", MethodAsync:
		return s.SendBatch(ctx, apiKey, req)
	case MethodSync:
		return s.SendRPS(ctx, apiKey, req)
	}
	return nil, &fiscalerr.Error{
		Kind:    fiscalerr.KindValidation,
		Field:   "metodo",
		Message: `metodo must be "sincrono" or "assincrono"`,
	}
}

// SendBatch submits a lot of RPS to EnvioLoteRPS.
func (s *Service) SendBatch(ctx context.Context, apiKey string, req *BatchRequest) (*Outcome, error) {
	return s.sendLot(ctx, apiKey, req, "nfse.sp.batch", transport.OpEnvioLoteRPS, response.ParseBatch)
}

// TestBatch submits a lot to TesteEnvioLoteRPS, which validates it without
// issuing any NFS-e.
func (s *Service) TestBatch(ctx context.Context, apiKey string, req *BatchRequest) (*Outcome, error) {
	return s.sendLot(ctx, apiKey, req, "nfse.sp.test_batch", transport.OpTesteEnvioLoteRPS, response.ParseTestBatch)
}

func (s *Service) sendLot(ctx context.Context, apiKey string, req *BatchRequest, name string, op transport.Operation, parse func([]byte) (*response.Result, error)) (*Outcome, error) {
	env, err := spRequest(req.LayoutVersion, req.Ambiente)
	if err != nil {
		return nil, err
	}
	if err := nfse.ValidateBatch(req.Lote); err != nil {
		return nil, err
	}

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if err := signRPS(m, req.Lote); err != nil {
		return nil, err
	}
	unsigned, err := nfse.BuildLoteRPS(req.Lote)
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(m, security.ProfileNFSe, unsigned, "")
	if err != nil {
		return nil, err
	}
	return s.spCall(ctx, m, name, op, env, signed, parse, req.LayoutVersion, req.IncludeSoap)
}

// SendRPS submits exactly one RPS to the synchronous EnvioRPS service.
func (s *Service) SendRPS(ctx context.Context, apiKey string, req *BatchRequest) (*Outcome, error) {
	env, err := spRequest(req.LayoutVersion, req.Ambiente)
	if err != nil {
		return nil, err
	}
	if err := nfse.ValidateSingle(req.Lote); err != nil {
		return nil, err
	}

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if err := signRPS(m, req.Lote); err != nil {
		return nil, err
	}
	unsigned, err := nfse.BuildEnvioRPS(req.Lote)
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(m, security.ProfileNFSe, unsigned, "")
	if err != nil {
		return nil, err
	}
	return s.spCall(ctx, m, "nfse.sp.rps", transport.OpEnvioRPS, env, signed, response.ParseRPS, req.LayoutVersion, req.IncludeSoap)
}

// LotStatus queries ConsultaSituacaoLote. The request is not signed.
func (s *Service) LotStatus(ctx context.Context, apiKey string, req *LotStatusRequest) (*Outcome, error) {
	env, err := spRequest(req.LayoutVersion, req.Ambiente)
	if err != nil {
		return nil, err
	}
	if err := nfse.ValidateLotStatus(&req.LotStatusRequest); err != nil {
		return nil, err
	}

	m, err := s.material(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	unsigned, err := nfse.BuildConsultaSituacaoLote(&req.LotStatusRequest)
	if err != nil {
		return nil, err
	}
	return s.spCall(ctx, m, "nfse.sp.lot_status", transport.OpConsultaSituacaoLote, env, unsigned, response.ParseLotStatus, req.LayoutVersion, req.IncludeSoap)
}

func (s *Service) spCall(ctx context.Context, m *keystore.Material, name string, op transport.Operation, env transport.Environment, message string, parse func([]byte) (*response.Result, error), layout string, includeSoap bool) (*Outcome, error) {
	envelope, err := transport.NFSeEnvelope(op, schemaVersion, message)
	if err != nil {
		return nil, fiscalerr.Wrap(fiscalerr.KindDocumentBuild, err, "building SOAP envelope")
	}
	result, debug, err := s.roundTrip(ctx, m, exchange{
		operation:   name,
		endpoint:    s.saoPaulo.For(op, env),
		envelope:    envelope,
		contentType: transport.ContentTypeSOAP11,
		soapAction:  op.SOAPAction,
		parse:       parse,
	}, Options{IncludeSoap: includeSoap})
	if err != nil {
		return nil, err
	}
	return &Outcome{Success: true, LayoutVersion: layout, Result: result, Soap: debug}, nil
}

// signRPS computes the positional signature of every RPS of l.
func signRPS(m *keystore.Material, l *nfse.Lote) error {
	signer, err := security.NewPositionalSigner(m.Credentials)
	if err != nil {
		return err
	}
	for i := range l.RPS {
		plain, err := nfse.SignatureString(&l.RPS[i])
		if err != nil {
			return err
		}
		sig, err := signer.Sign(plain)
		if err != nil {
			return err
		}
		l.RPS[i].Assinatura = sig
	}
	return nil
}

// spRequest checks the layout and environment shared by every São Paulo
// request.
func spRequest(layout, ambiente string) (transport.Environment, error) {
	if layout == "" {
		return "", missingField("layoutVersion")
	}
	if err := nfse.CheckLayout(layout); err != nil {
		return "", err
	}
	if strings.TrimSpace(ambiente) == "" {
		return transport.Production, nil
	}
	env, err := transport.ParseEnvironment(ambiente)
	if err != nil {
		return "", &fiscalerr.Error{Kind: fiscalerr.KindValidation, Field: "ambiente", Message: err.Error()}
	}
	return env, nil
}
