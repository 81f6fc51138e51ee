// Package keystore provides tenant certificate material to the document
// pipeline.
//
// Certificates and their passphrases are stored encrypted with a [Cipher]:
// AES-256-GCM under a key derived with scrypt from the deployment secret
// and a random per-value salt. A [CertificateProvider] loads an account,
// decrypts its container and opens it, so the pipeline only ever sees
// ready-to-use key material.
//
// Material lives only as long as the call that loaded it; nothing decrypted
// is kept between requests.
package keystore

import (
	"context"
	"errors"

	"github.com/sirosfoundation/go-fiscal/pkg/security"
)

// Common errors
var (
	ErrKeyTooShort        = errors.New("encryption key must be at least 32 characters")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryption         = errors.New("decryption failed")
)

// CertificateProvider loads the certificate material of a tenant.
//
// Implementations must be safe for concurrent use. A missing account is
// reported as CERTIFICATE_NOT_FOUND.
type CertificateProvider interface {
	Load(ctx context.Context, apiKey string) (*Material, error)
}

// Material is an opened tenant certificate.
type Material struct {
	APIKey string

	// TaxpayerID is the CNPJ registered for the account.
	TaxpayerID string

	Credentials *security.Credentials
}
