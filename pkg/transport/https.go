package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// DefaultTimeout bounds one SOAP exchange.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps the upstream body read into memory.
const maxResponseBytes = 16 << 20

// HTTPSConfig contains HTTPS client configuration
type HTTPSConfig struct {
	MinTLSVersion      uint16
	Certificates       []tls.Certificate
	RootCAs            *x509.CertPool
	InsecureSkipVerify bool
	Timeout            time.Duration
	IdleConnTimeout    time.Duration
	UserAgent          string
}

// DefaultHTTPSConfig returns a default HTTPS configuration
func DefaultHTTPSConfig() *HTTPSConfig {
	return &HTTPSConfig{
		MinTLSVersion:   TLS12,
		Timeout:         DefaultTimeout,
		IdleConnTimeout: 90 * time.Second,
		UserAgent:       "go-fiscal/1.0",
	}
}

// WithCertificate returns a copy of c presenting cert for mutual TLS.
func (c *HTTPSConfig) WithCertificate(cert tls.Certificate) *HTTPSConfig {
	cp := *c
	cp.Certificates = []tls.Certificate{cert}
	return &cp
}

// HTTPSClient posts SOAP envelopes to tax authority endpoints. One attempt
// is made per call; failures are classified, never retried.
type HTTPSClient struct {
	client *http.Client
	config *HTTPSConfig
	logger *slog.Logger
}

// NewHTTPSClient creates a new HTTPS client
func NewHTTPSClient(config *HTTPSConfig, logger *slog.Logger) *HTTPSClient {
	if config == nil {
		config = DefaultHTTPSConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	tlsConfig := &tls.Config{
		MinVersion:         config.MinTLSVersion,
		Certificates:       config.Certificates,
		RootCAs:            config.RootCAs,
		InsecureSkipVerify: config.InsecureSkipVerify, //nolint:gosec // homologation only
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return &HTTPSClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config: config,
		logger: logger,
	}
}

// Close releases idle connections held by the client.
func (c *HTTPSClient) Close() {
	c.client.CloseIdleConnections()
}

// Send posts message to endpoint and returns the response body. HTTP
// statuses of 400 and above are reported as TRANSPORT_FAILURE with a
// sub-kind naming the cause; the body is kept in the error for inspection.
func (c *HTTPSClient) Send(ctx context.Context, endpoint string, message []byte, contentType, soapAction string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(message))
	if err != nil {
		return nil, fiscalerr.Transport(fiscalerr.SubKindHTTPError, 0, "invalid endpoint "+endpoint, err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.config.UserAgent)
	if soapAction != "" {
		req.Header.Set("SOAPAction", soapAction)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("SOAP request failed", "endpoint", endpoint, "error", err)
		return nil, noResponse(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, noResponse(ctx, err)
	}

	c.logger.Debug("SOAP exchange",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"request_bytes", len(message),
		"response_bytes", len(body),
		"duration", time.Since(start))

	if err := classifyStatus(resp.StatusCode, endpoint); err != nil {
		err.Raw = body
		return nil, err
	}
	return body, nil
}

func noResponse(ctx context.Context, err error) error {
	msg := "no response from the tax authority; check network connectivity"
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "request cancelled before the tax authority responded"
	case isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		msg = "tax authority did not respond within the timeout"
	}
	return fiscalerr.Transport(fiscalerr.SubKindNoResponse, 0, msg, err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
}

// classifyStatus maps an HTTP status to a transport failure, or nil for
// statuses below 400.
func classifyStatus(status int, endpoint string) *fiscalerr.Error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return fiscalerr.Transport(fiscalerr.SubKindUnauthorized, status,
			"unauthorized (401); check the digital certificate", nil)
	case status == http.StatusForbidden:
		return fiscalerr.Transport(fiscalerr.SubKindForbidden, status,
			"access denied (403); certificate not authorized or IP blocked", nil)
	case status == http.StatusNotFound:
		return fiscalerr.Transport(fiscalerr.SubKindEndpointNotFound, status,
			fmt.Sprintf("service not found (404): %s", endpoint), nil)
	case status >= 500:
		return fiscalerr.Transport(fiscalerr.SubKindUpstreamServerError, status,
			fmt.Sprintf("tax authority server error (%d)", status), nil)
	default:
		return fiscalerr.Transport(fiscalerr.SubKindHTTPError, status,
			fmt.Sprintf("HTTP error %d from the tax authority", status), nil)
	}
}
