// Package testpki issues throw-away RSA certificates and PKCS#12 containers
// for tests.
package testpki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// Password protects the containers issued by New.
const Password = "test-password"

// Options tunes the issued certificate.
type Options struct {
	CommonName   string
	SerialNumber string
	Organization string
	NotBefore    time.Time
	NotAfter     time.Time
	DNSNames     []string
	Extensions   []pkix.Extension
}

// Cert is an issued test certificate.
type Cert struct {
	Key         *rsa.PrivateKey
	Certificate *x509.Certificate
	PFX         []byte
}

var (
	mu        sync.Mutex
	sharedKey *rsa.PrivateKey
)

func key(t testing.TB) *rsa.PrivateKey {
	mu.Lock()
	defer mu.Unlock()
	if sharedKey == nil {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generating RSA key: %v", err)
		}
		sharedKey = k
	}
	return sharedKey
}

// New issues a self-signed certificate. Zero options give an ICP-Brasil
// style e-CNPJ subject valid for one day.
func New(t testing.TB, opts Options) *Cert {
	t.Helper()
	if opts.CommonName == "" {
		opts.CommonName = "EMPRESA DE TESTE LTDA:52507723000185"
	}
	if opts.NotBefore.IsZero() {
		opts.NotBefore = time.Now().Add(-time.Hour)
	}
	if opts.NotAfter.IsZero() {
		opts.NotAfter = time.Now().Add(24 * time.Hour)
	}
	k := key(t)

	subject := pkix.Name{CommonName: opts.CommonName, SerialNumber: opts.SerialNumber}
	if opts.Organization != "" {
		subject.Organization = []string{opts.Organization}
	}
	template := &x509.Certificate{
		SerialNumber:    big.NewInt(time.Now().UnixNano()),
		Subject:         subject,
		NotBefore:       opts.NotBefore,
		NotAfter:        opts.NotAfter,
		KeyUsage:        x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		DNSNames:        opts.DNSNames,
		ExtraExtensions: opts.Extensions,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &k.PublicKey, k)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}
	pfx, err := pkcs12.Encode(rand.Reader, k, cert, nil, Password)
	if err != nil {
		t.Fatalf("encoding PKCS#12: %v", err)
	}
	return &Cert{Key: k, Certificate: cert, PFX: pfx}
}
