// Package storage provides the account store of the fiscal gateway.
//
// # Interface Design
//
// An account binds an API key to one tenant certificate. The PKCS#12
// container and its passphrase are stored encrypted (see the keystore
// package); the certificate metadata is stored in clear so account status
// can be reported without decrypting anything.
//
// # Implementations
//
//   - file: one JSON document per account under a data directory
//   - mongodb: one document per account in a collection
//   - postgres: one row per account in the fiscal_accounts table
//
// The storagetest sub-package holds the behavior every implementation
// must share.
//
// # Concurrency
//
// All store implementations must be safe for concurrent use from multiple
// goroutines.
package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by every store.
var (
	// ErrAccountNotFound indicates no account exists for the API key.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates an account already exists for the API key
	// or the certificate CNPJ.
	ErrAccountExists = errors.New("account already exists")
)

// AccountStore persists tenant accounts keyed by API key.
type AccountStore interface {
	// CreateAccount stores a new account. It fails with ErrAccountExists
	// when the API key or the CNPJ is already registered.
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccount retrieves an account by API key
	GetAccount(ctx context.Context, apiKey string) (*Account, error)

	// GetAccountByCNPJ retrieves the account registered for a CNPJ
	GetAccountByCNPJ(ctx context.Context, cnpj string) (*Account, error)

	// UpdateAccount replaces an existing account
	UpdateAccount(ctx context.Context, account *Account) error

	// DeleteAccount removes an account
	DeleteAccount(ctx context.Context, apiKey string) error

	// AccountExists reports whether an account exists for the API key
	AccountExists(ctx context.Context, apiKey string) (bool, error)

	// Close releases storage resources
	Close(ctx context.Context) error

	// Ping checks storage connectivity
	Ping(ctx context.Context) error
}

// Account is a tenant of the gateway.
type Account struct {
	APIKey string `bson:"_id" json:"apiKey"`

	// Certificate is the encrypted PKCS#12 container.
	Certificate string `bson:"certificate" json:"certificado"`

	// Password is the encrypted container passphrase.
	Password string `bson:"password" json:"senha"`

	Metadata AccountMetadata `bson:"metadata" json:"metadata"`
}

// AccountMetadata describes the account certificate.
type AccountMetadata struct {
	CNPJ         string    `bson:"cnpj" json:"cnpj"`
	CompanyName  string    `bson:"company_name" json:"razaoSocial"`
	Issuer       string    `bson:"issuer" json:"issuer"`
	SerialNumber string    `bson:"serial_number" json:"serialNumber,omitempty"`
	ValidUntil   time.Time `bson:"valid_until" json:"validade"`
	CreatedAt    time.Time `bson:"created_at" json:"criadoEm"`
	UpdatedAt    time.Time `bson:"updated_at" json:"atualizadoEm"`
}

// Clone returns a copy of a, so callers never share store-owned values.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
