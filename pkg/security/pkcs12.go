package security

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Credentials is the key material of a tenant certificate.
type Credentials struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
	CACerts     []*x509.Certificate
}

// OpenPKCS12 decodes a PFX/P12 container. A wrong passphrase yields
// INVALID_PASSWORD; anything else wrong with the container, including a
// missing key or certificate bag or a non-RSA key, yields INVALID_CERTIFICATE.
func OpenPKCS12(data []byte, password string) (*Credentials, error) {
	if len(data) == 0 {
		return nil, fiscalerr.New(fiscalerr.KindInvalidCertificate, "certificate is empty")
	}
	key, cert, ca, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) || errors.Is(err, pkcs12.ErrDecryption) {
			return nil, fiscalerr.Wrap(fiscalerr.KindInvalidPassword, err, "certificate password is incorrect")
		}
		return nil, fiscalerr.Wrap(fiscalerr.KindInvalidCertificate, err, "cannot read PKCS#12 container")
	}
	if cert == nil {
		return nil, fiscalerr.New(fiscalerr.KindInvalidCertificate, "no certificate found in PKCS#12 container")
	}
	if key == nil {
		return nil, fiscalerr.New(fiscalerr.KindInvalidCertificate, "no private key found in PKCS#12 container")
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fiscalerr.Newf(fiscalerr.KindInvalidCertificate, "unsupported private key type %T", key)
	}
	return &Credentials{Certificate: cert, PrivateKey: rsaKey, CACerts: ca}, nil
}

// TLSCertificate returns the credentials as a client certificate for mutual TLS.
func (c *Credentials) TLSCertificate() tls.Certificate {
	chain := [][]byte{c.Certificate.Raw}
	for _, ca := range c.CACerts {
		chain = append(chain, ca.Raw)
	}
	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  c.PrivateKey,
		Leaf:        c.Certificate,
	}
}
