package keystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/internal/storage"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
	"github.com/sirosfoundation/go-fiscal/pkg/security"
)

// AccountProvider implements CertificateProvider on top of the account
// store. Every Load reads the account and decrypts it again; opened
// material belongs to the caller and is never retained.
type AccountProvider struct {
	store  storage.AccountStore
	cipher *Cipher
	logger *slog.Logger
}

// AccountProviderConfig holds configuration for the account provider
type AccountProviderConfig struct {
	Store  storage.AccountStore
	Cipher *Cipher
	Logger *slog.Logger
}

// NewAccountProvider creates a provider
func NewAccountProvider(cfg *AccountProviderConfig) (*AccountProvider, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Cipher == nil {
		return nil, fmt.Errorf("cipher is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &AccountProvider{store: cfg.Store, cipher: cfg.Cipher, logger: log}, nil
}

// Load returns the opened certificate of the account
func (p *AccountProvider) Load(ctx context.Context, apiKey string) (*Material, error) {
	account, err := p.store.GetAccount(ctx, apiKey)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, fiscalerr.Wrap(fiscalerr.KindCertificateNotFound, err, "no certificate registered for this API key")
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	material, err := p.open(account)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Certificate loaded",
		slog.String("api_key_id", logger.KeyID(apiKey)),
		slog.String("cnpj", material.TaxpayerID),
		slog.Time("not_after", material.Credentials.Certificate.NotAfter))

	return material, nil
}

func (p *AccountProvider) open(account *storage.Account) (*Material, error) {
	pfx, err := p.cipher.DecryptFile(account.Certificate)
	if err != nil {
		return nil, fiscalerr.Wrap(fiscalerr.KindInternal, err, "cannot decrypt stored certificate")
	}
	password, err := p.cipher.Decrypt(account.Password)
	if err != nil {
		return nil, fiscalerr.Wrap(fiscalerr.KindInternal, err, "cannot decrypt stored certificate password")
	}

	creds, err := security.OpenPKCS12(pfx, password)
	if err != nil {
		return nil, err
	}

	taxpayer := account.Metadata.CNPJ
	if taxpayer == "" {
		taxpayer = security.TaxpayerID(creds.Certificate)
	}

	return &Material{
		APIKey:      account.APIKey,
		TaxpayerID:  taxpayer,
		Credentials: creds,
	}, nil
}

var _ CertificateProvider = (*AccountProvider)(nil)
