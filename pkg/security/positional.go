package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// PositionalSigner signs fixed-width strings with RSA-SHA1. It is used
// for the per-RPS Assinatura and never for XML documents.
type PositionalSigner struct {
	key *rsa.PrivateKey
}

// NewPositionalSigner creates a positional signer.
func NewPositionalSigner(creds *Credentials) (*PositionalSigner, error) {
	if creds == nil || creds.PrivateKey == nil {
		return nil, fiscalerr.New(fiscalerr.KindInvalidCertificate, "signing credentials are incomplete")
	}
	return &PositionalSigner{key: creds.PrivateKey}, nil
}

// Sign returns the base64 RSA-SHA1 PKCS#1 v1.5 signature of value.
func (s *PositionalSigner) Sign(value string) (string, error) {
	sum := sha1.Sum([]byte(value))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, sum[:])
	if err != nil {
		return "", fiscalerr.Wrap(fiscalerr.KindSigning, err, "signing RPS string")
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyPositional checks a signature produced by PositionalSigner.
func VerifyPositional(cert *x509.Certificate, value, signature string) error {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate does not carry an RSA key")
	}
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	sum := sha1.Sum([]byte(value))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA1, sum[:], raw)
}
