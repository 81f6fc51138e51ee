package security

import (
	"crypto/x509"
	encasn1 "encoding/asn1"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/sirosfoundation/go-fiscal/pkg/accesskey"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

var (
	// ErrCertificateExpired is returned when a certificate has expired
	ErrCertificateExpired = errors.New("certificate has expired")
	// ErrCertificateNotYetValid is returned when a certificate is not yet valid
	ErrCertificateNotYetValid = errors.New("certificate is not yet valid")
	// ErrNoTaxpayerID is returned when no CNPJ can be found in a certificate
	ErrNoTaxpayerID = errors.New("could not extract CNPJ from certificate")
)

var oidSubjectAltName = encasn1.ObjectIdentifier{2, 5, 29, 17}

var cnTaxpayerID = regexp.MustCompile(`:?\d{14}`)

// Metadata describes a tenant certificate.
type Metadata struct {
	CNPJ         string    `json:"cnpj"`
	CompanyName  string    `json:"razaoSocial"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serialNumber"`
	NotBefore    time.Time `json:"notBefore"`
	NotAfter     time.Time `json:"validade"`
}

// CheckValidity reports whether cert is within its validity period at now.
func CheckValidity(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return ErrCertificateNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrCertificateExpired
	}
	return nil
}

// InspectCertificate extracts the metadata of a tenant certificate and
// checks that it is currently valid.
func InspectCertificate(cert *x509.Certificate, now time.Time) (*Metadata, error) {
	if err := CheckValidity(cert, now); err != nil {
		return nil, fiscalerr.Wrap(fiscalerr.KindInvalidCertificate, err, "certificate is outside its validity period")
	}
	cnpj := TaxpayerID(cert)
	if cnpj == "" {
		return nil, fiscalerr.Wrap(fiscalerr.KindInvalidCertificate, ErrNoTaxpayerID, "certificate has no CNPJ")
	}
	return &Metadata{
		CNPJ:         cnpj,
		CompanyName:  companyName(cert),
		Issuer:       issuerName(cert),
		SerialNumber: fmt.Sprintf("%x", cert.SerialNumber),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
	}, nil
}

// TaxpayerID finds the CNPJ of a certificate in the subject serialNumber,
// then in the subject alternative names, then in the common name.
func TaxpayerID(cert *x509.Certificate) string {
	if d := accesskey.OnlyDigits(cert.Subject.SerialNumber); len(d) == 14 {
		return d
	}
	for _, v := range altNameValues(cert) {
		if d := accesskey.OnlyDigits(v); len(d) == 14 {
			return d
		}
	}
	if m := cnTaxpayerID.FindString(cert.Subject.CommonName); m != "" {
		return strings.TrimPrefix(m, ":")
	}
	return ""
}

func companyName(cert *x509.Certificate) string {
	if cn := strings.TrimSpace(cnTaxpayerID.ReplaceAllString(cert.Subject.CommonName, "")); cn != "" {
		return cn
	}
	if len(cert.Subject.Organization) > 0 {
		return cert.Subject.Organization[0]
	}
	return "Nome não encontrado"
}

func issuerName(cert *x509.Certificate) string {
	if cert.Issuer.CommonName != "" {
		return cert.Issuer.CommonName
	}
	if len(cert.Issuer.Organization) > 0 {
		return cert.Issuer.Organization[0]
	}
	return "Unknown"
}

// altNameValues returns the string values of the subject alternative
// names, including otherName entries such as the ICP-Brasil CNPJ field.
func altNameValues(cert *x509.Certificate) []string {
	values := append([]string{}, cert.EmailAddresses...)
	values = append(values, cert.DNSNames...)
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oidSubjectAltName) {
			continue
		}
		input := cryptobyte.String(ext.Value)
		var names cryptobyte.String
		if !input.ReadASN1(&names, cbasn1.SEQUENCE) {
			break
		}
		for !names.Empty() {
			var name cryptobyte.String
			var tag cbasn1.Tag
			if !names.ReadAnyASN1(&name, &tag) {
				break
			}
			if tag != cbasn1.Tag(0).ContextSpecific().Constructed() {
				continue
			}
			var oid encasn1.ObjectIdentifier
			var value cryptobyte.String
			if !name.ReadASN1ObjectIdentifier(&oid) ||
				!name.ReadASN1(&value, cbasn1.Tag(0).ContextSpecific().Constructed()) {
				continue
			}
			var inner cryptobyte.String
			var innerTag cbasn1.Tag
			if value.ReadAnyASN1(&inner, &innerTag) {
				values = append(values, string(inner))
			}
		}
	}
	return values
}
