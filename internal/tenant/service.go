// Package tenant provides account provisioning for the fiscal gateway.
//
// An account is created from an uploaded PKCS#12 certificate and its
// passphrase. The certificate is validated and inspected, both secrets are
// encrypted and the account is stored under a fresh UUID v4 API key. Only
// one account may exist per CNPJ.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-fiscal/internal/keystore"
	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/internal/storage"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
	"github.com/sirosfoundation/go-fiscal/pkg/security"
)

// MaxCertificateBytes bounds an uploaded certificate container.
const MaxCertificateBytes = 5 << 20

var certificateExtensions = []string{".pfx", ".p12"}

// Service manages accounts
type Service struct {
	store  storage.AccountStore
	cipher *keystore.Cipher
	logger *slog.Logger
	now    func() time.Time
}

// Config holds service configuration
type Config struct {
	Logger *slog.Logger
}

// NewService creates a new account service
func NewService(store storage.AccountStore, cipher *keystore.Cipher, cfg *Config) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		cipher: cipher,
		logger: log,
		now:    time.Now,
	}
}

// Upload is a certificate submitted by a tenant.
type Upload struct {
	Filename string
	Content  []byte
	Password string
}

// CertificateSummary is the public description of an account certificate.
type CertificateSummary struct {
	CNPJ        string    `json:"cnpj"`
	CompanyName string    `json:"razaoSocial"`
	ValidUntil  time.Time `json:"validade"`
	Issuer      string    `json:"issuer,omitempty"`
}

// SetupResult is returned once, when an account is created.
type SetupResult struct {
	APIKey      string             `json:"apiKey"`
	Certificate CertificateSummary `json:"certificado"`
}

// AccountDates holds account bookkeeping timestamps.
type AccountDates struct {
	CreatedAt time.Time `json:"criadaEm"`
	UpdatedAt time.Time `json:"atualizadaEm"`
}

// Status describes an existing account.
type Status struct {
	Certificate CertificateSummary `json:"certificado"`
	Account     AccountDates       `json:"conta"`
}

// Setup creates an account for the uploaded certificate
func (s *Service) Setup(ctx context.Context, up Upload) (*SetupResult, error) {
	meta, err := s.inspect(up)
	if err != nil {
		return nil, err
	}

	_, err = s.store.GetAccountByCNPJ(ctx, meta.CNPJ)
	if err == nil {
		return nil, fiscalerr.New(fiscalerr.KindAccountExists, "an account is already registered for this CNPJ")
	}
	if !errors.Is(err, storage.ErrAccountNotFound) {
		return nil, fmt.Errorf("looking up CNPJ: %w", err)
	}

	account, err := s.seal(up)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	account.APIKey = uuid.NewString()
	account.Metadata = metadata(meta, now, now)

	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return nil, fiscalerr.Wrap(fiscalerr.KindAccountExists, err, "an account is already registered for this CNPJ")
		}
		return nil, fmt.Errorf("storing account: %w", err)
	}

	s.logger.Info("Account created",
		slog.String("api_key_id", logger.KeyID(account.APIKey)),
		slog.String("cnpj", meta.CNPJ),
		slog.Time("valid_until", meta.NotAfter))

	return &SetupResult{
		APIKey: account.APIKey,
		Certificate: CertificateSummary{
			CNPJ:        FormatCNPJ(meta.CNPJ),
			CompanyName: meta.CompanyName,
			ValidUntil:  meta.NotAfter,
		},
	}, nil
}

// Status reports the certificate and bookkeeping data of an account
func (s *Service) Status(ctx context.Context, apiKey string) (*Status, error) {
	account, err := s.account(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	m := account.Metadata
	return &Status{
		Certificate: CertificateSummary{
			CNPJ:        FormatCNPJ(m.CNPJ),
			CompanyName: m.CompanyName,
			ValidUntil:  m.ValidUntil,
			Issuer:      m.Issuer,
		},
		Account: AccountDates{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
	}, nil
}

// RotateCertificate replaces the certificate of an existing account. The
// API key is kept.
func (s *Service) RotateCertificate(ctx context.Context, apiKey string, up Upload) (*CertificateSummary, error) {
	current, err := s.account(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	meta, err := s.inspect(up)
	if err != nil {
		return nil, err
	}

	account, err := s.seal(up)
	if err != nil {
		return nil, err
	}
	account.APIKey = apiKey
	account.Metadata = metadata(meta, current.Metadata.CreatedAt, s.now().UTC())

	if err := s.store.UpdateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			return nil, fiscalerr.Wrap(fiscalerr.KindAccountNotFound, err, "account not found")
		case errors.Is(err, storage.ErrAccountExists):
			return nil, fiscalerr.Wrap(fiscalerr.KindAccountExists, err, "another account is registered for this CNPJ")
		}
		return nil, fmt.Errorf("updating account: %w", err)
	}

	s.logger.Info("Account certificate rotated",
		slog.String("api_key_id", logger.KeyID(apiKey)),
		slog.String("cnpj", meta.CNPJ),
		slog.Time("valid_until", meta.NotAfter))

	return &CertificateSummary{
		CNPJ:        FormatCNPJ(meta.CNPJ),
		CompanyName: meta.CompanyName,
		ValidUntil:  meta.NotAfter,
	}, nil
}

// Delete removes an account and its certificate
func (s *Service) Delete(ctx context.Context, apiKey string) error {
	err := s.store.DeleteAccount(ctx, apiKey)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return fiscalerr.Wrap(fiscalerr.KindAccountNotFound, err, "account not found")
	}
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}

	s.logger.Info("Account deleted", slog.String("api_key_id", logger.KeyID(apiKey)))
	return nil
}

// Authenticate checks that apiKey is a well-formed UUID naming an existing
// account. Every failure is reported as INVALID_API_KEY.
func (s *Service) Authenticate(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fiscalerr.New(fiscalerr.KindInvalidAPIKey, "API key not provided")
	}
	if _, err := uuid.Parse(apiKey); err != nil {
		return fiscalerr.New(fiscalerr.KindInvalidAPIKey, "invalid API key format")
	}
	ok, err := s.store.AccountExists(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("checking API key: %w", err)
	}
	if !ok {
		return fiscalerr.New(fiscalerr.KindInvalidAPIKey, "invalid API key")
	}
	return nil
}

func (s *Service) account(ctx context.Context, apiKey string) (*storage.Account, error) {
	account, err := s.store.GetAccount(ctx, apiKey)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, fiscalerr.Wrap(fiscalerr.KindAccountNotFound, err, "account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}
	return account, nil
}

// inspect validates the upload and opens the certificate.
func (s *Service) inspect(up Upload) (*security.Metadata, error) {
	if err := validateUpload(up); err != nil {
		return nil, err
	}
	creds, err := security.OpenPKCS12(up.Content, up.Password)
	if err != nil {
		return nil, err
	}
	return security.InspectCertificate(creds.Certificate, s.now())
}

// seal encrypts the upload into a new account value.
func (s *Service) seal(up Upload) (*storage.Account, error) {
	cert, err := s.cipher.EncryptFile(up.Content)
	if err != nil {
		return nil, fmt.Errorf("encrypting certificate: %w", err)
	}
	password, err := s.cipher.Encrypt(up.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypting password: %w", err)
	}
	return &storage.Account{Certificate: cert, Password: password}, nil
}

func validateUpload(up Upload) error {
	if len(up.Content) == 0 {
		e := fiscalerr.New(fiscalerr.KindMissingField, "certificate file not provided")
		e.Field = "certificado"
		return e
	}
	if len(up.Content) > MaxCertificateBytes {
		return fiscalerr.New(fiscalerr.KindValidation, "certificate file exceeds 5MB limit")
	}
	if up.Filename != "" && !hasCertificateExtension(up.Filename) {
		return fiscalerr.New(fiscalerr.KindValidation, "invalid file type, only .pfx and .p12 files are allowed")
	}
	if up.Password == "" {
		e := fiscalerr.New(fiscalerr.KindMissingField, "certificate password not provided")
		e.Field = "senha"
		return e
	}
	return nil
}

func hasCertificateExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range certificateExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func metadata(m *security.Metadata, created, updated time.Time) storage.AccountMetadata {
	return storage.AccountMetadata{
		CNPJ:         m.CNPJ,
		CompanyName:  m.CompanyName,
		Issuer:       m.Issuer,
		SerialNumber: m.SerialNumber,
		ValidUntil:   m.NotAfter,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}
}

// FormatCNPJ renders a 14-digit CNPJ as NN.NNN.NNN/NNNN-NN. Other values
// are returned unchanged.
func FormatCNPJ(cnpj string) string {
	if len(cnpj) != 14 {
		return cnpj
	}
	return cnpj[:2] + "." + cnpj[2:5] + "." + cnpj[5:8] + "/" + cnpj[8:12] + "-" + cnpj[12:]
}
