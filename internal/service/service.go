// Package service orchestrates fiscal document requests.
//
// Every operation runs the same sequential pipeline and stops at the first
// failure:
//
//	LoadCertificate → Build → ComputeIdentifiers → Sign → Transmit → Normalize
//
// The tenant certificate is loaded through a [keystore.CertificateProvider]
// and presented both for signing and as the TLS client certificate of the
// SOAP call. Exactly one HTTPS attempt is made per call; failures are
// classified by [fiscalerr] and never retried here.
//
// # Endpoint Resolution
//
// NF-e endpoints are resolved in the following priority order:
//
//  1. Options.EndpointOverride - explicit URL supplied by the caller
//  2. transport.nfeEndpoints - configured override for service, UF and environment
//  3. the static SEFAZ table in pkg/transport
//
// São Paulo NFS-e endpoints come from configuration, falling back to the
// published production URLs.
//
// # Debug Payload
//
// When Options.IncludeSoap is set the SOAP request and response are returned
// gzip compressed. They are attached to successful outcomes and to
// UPSTREAM_FAULT and UPSTREAM_RESPONSE_UNPARSEABLE errors.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sirosfoundation/go-fiscal/internal/config"
	"github.com/sirosfoundation/go-fiscal/internal/keystore"
	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/pkg/compression"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
	"github.com/sirosfoundation/go-fiscal/pkg/response"
	"github.com/sirosfoundation/go-fiscal/pkg/security"
	"github.com/sirosfoundation/go-fiscal/pkg/transport"
)

// Service runs fiscal operations on behalf of tenants
type Service struct {
	certs      keystore.CertificateProvider
	https      *transport.HTTPSConfig
	overrides  map[string]string
	saoPaulo   transport.SaoPauloEndpoints
	verify     bool
	compressor *compression.Compressor
	logger     *slog.Logger
	now        func() time.Time
}

// Config holds service configuration
type Config struct {
	// HTTPS is the base client configuration. The tenant certificate is
	// added per call.
	HTTPS *transport.HTTPSConfig

	// EndpointOverrides maps config.OverrideKey values to NF-e URLs.
	EndpointOverrides map[string]string

	SaoPaulo transport.SaoPauloEndpoints

	// VerifyAfterSign re-verifies every enveloped signature before sending
	VerifyAfterSign bool

	Logger *slog.Logger
}

// New creates a new service
func New(certs keystore.CertificateProvider, cfg *Config) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	https := cfg.HTTPS
	if https == nil {
		https = transport.DefaultHTTPSConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	overrides := cfg.EndpointOverrides
	if overrides == nil {
		overrides = map[string]string{}
	}
	return &Service{
		certs:      certs,
		https:      https,
		overrides:  overrides,
		saoPaulo:   cfg.SaoPaulo,
		verify:     cfg.VerifyAfterSign,
		compressor: compression.NewCompressor(),
		logger:     log,
		now:        time.Now,
	}
}

// Options are the per-call switches shared by every operation.
type Options struct {
	IncludeSoap      bool   `json:"includeSoap,omitempty"`
	EndpointOverride string `json:"endpointOverride,omitempty"`
}

// Outcome is the result of a completed pipeline. Success reports that the
// exchange completed; the verdict of the tax authority is in Result.
type Outcome struct {
	Success       bool                      `json:"success"`
	AccessKey     string                    `json:"chaveAcesso,omitempty"`
	LayoutVersion string                    `json:"layoutVersion,omitempty"`
	Result        *response.Result          `json:"resultado"`
	Soap          *compression.DebugPayload `json:"soap,omitempty"`
}

// exchange is one SOAP round trip.
type exchange struct {
	operation   string
	endpoint    string
	envelope    []byte
	contentType string
	soapAction  string
	parse       func([]byte) (*response.Result, error)
}

// material loads the tenant certificate. It is the first pipeline step.
func (s *Service) material(ctx context.Context, apiKey string) (*keystore.Material, error) {
	if s.certs == nil {
		return nil, fiscalerr.New(fiscalerr.KindCertificateNotFound, "no certificate provider configured")
	}
	return s.certs.Load(ctx, apiKey)
}

// sign applies an enveloped signature to the element with Id id, or to the
// whole document when id is empty.
func (s *Service) sign(m *keystore.Material, profile security.Profile, xml, id string) (string, error) {
	signer, err := security.NewEnvelopedSigner(m.Credentials, profile)
	if err != nil {
		return "", err
	}
	signed, err := signer.Sign(xml, id)
	if err != nil {
		return "", err
	}
	if s.verify {
		if err := security.VerifyEnveloped(signed, m.Credentials.Certificate); err != nil {
			return "", fiscalerr.Wrap(fiscalerr.KindSigning, err, "signature self-check failed")
		}
	}
	return signed, nil
}

// roundTrip transmits ex with the tenant certificate and normalizes the
// answer.
func (s *Service) roundTrip(ctx context.Context, m *keystore.Material, ex exchange, opts Options) (*response.Result, *compression.DebugPayload, error) {
	log := logger.ContextRequestLogger(ctx).With(
		slog.String("operation", ex.operation),
		slog.String("endpoint", ex.endpoint))

	client := transport.NewHTTPSClient(s.https.WithCertificate(m.Credentials.TLSCertificate()), log)
	defer client.Close()

	start := time.Now()
	raw, err := client.Send(ctx, ex.endpoint, ex.envelope, ex.contentType, ex.soapAction)
	if err != nil {
		err = faultFromStatus(err)
		log.Warn("SOAP exchange failed",
			slog.String("code", string(fiscalerr.KindOf(err))),
			slog.String("sub_code", string(fiscalerr.SubKindOf(err))),
			slog.Duration("duration", time.Since(start)))
		return nil, nil, s.withDebug(err, ex.envelope, opts)
	}

	result, err := ex.parse(raw)
	if err != nil {
		log.Warn("Upstream response rejected",
			slog.String("code", string(fiscalerr.KindOf(err))),
			slog.Int("response_bytes", len(raw)))
		return nil, nil, s.withDebug(err, ex.envelope, opts)
	}

	log.Info("SOAP exchange completed",
		slog.Bool("accepted", result.Success),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", time.Since(start)))
	logger.ContextWithLogAttrs(ctx, slog.String("operation", ex.operation))

	if !opts.IncludeSoap {
		return result, nil, nil
	}
	debug, err := s.compressor.NewDebugPayload(ex.envelope, raw)
	if err != nil {
		return nil, nil, fiscalerr.Wrap(fiscalerr.KindInternal, err, "building debug payload")
	}
	return result, debug, nil
}

// faultFromStatus reclassifies an HTTP error whose body is a SOAP fault.
// SOAP 1.1 services answer faults with status 500.
func faultFromStatus(err error) error {
	fe, ok := fiscalerr.As(err)
	if !ok || fe.Kind != fiscalerr.KindTransport || fe.StatusCode < 500 || len(fe.Raw) == 0 {
		return err
	}
	if f, ok := response.DetectFault(fe.Raw); ok {
		return response.FaultError(fe.Raw, f)
	}
	return err
}

// withDebug attaches the SOAP exchange to upstream errors when requested.
func (s *Service) withDebug(err error, request []byte, opts Options) error {
	if !opts.IncludeSoap {
		return err
	}
	fe, ok := fiscalerr.As(err)
	if !ok {
		return err
	}
	if fe.Kind != fiscalerr.KindUpstreamFault && fe.Kind != fiscalerr.KindUpstreamResponseUnparseable {
		return err
	}
	if debug, derr := s.compressor.NewDebugPayload(request, fe.Raw); derr == nil {
		fe.Debug = debug
	}
	return err
}

// nfeEndpoint resolves the URL of an NF-e service.
func (s *Service) nfeEndpoint(service transport.Service, cUF string, env transport.Environment, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if url, ok := s.overrides[config.OverrideKey(service, cUF, env)]; ok {
		return url, nil
	}
	url, err := transport.Endpoint(service, cUF, env)
	if err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindValidation, err, "no endpoint for this UF")
	}
	return url, nil
}
