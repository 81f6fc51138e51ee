// Package accesskey derives the fixed-format identifiers of NF-e documents:
// the 44-digit access key with its mod-11 check digit, the inutilization
// ID and the event ID.
//
// All functions are pure. Field widths are schema-mandated; a width
// violation surfaces as [fiscalerr.KindInvalidKeyLength] rather than a
// silently wrong key.
package accesskey

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

const (
	// KeyLength is the length of a complete access key.
	KeyLength = 44

	// BodyLength is the length of the key without its check digit.
	BodyLength = 43

	// EventCancellation is the tpEvento of a cancellation event.
	EventCancellation = "110111"
)

// Params are the inputs of an access key.
type Params struct {
	StateCode    int    // cUF
	EmissionDate string // dhEmi, ISO 8601 ("2024-01-15T10:00:00-03:00")
	TaxpayerID   string // CNPJ or CPF, punctuation allowed
	Model        int    // mod
	Series       int    // serie
	Number       int    // nNF
	EmissionType int    // tpEmis
	RandomCode   string // cNF; generated when empty
}

// Key is a computed access key.
type Key struct {
	Value      string
	RandomCode string
	CheckDigit int
}

// Compute builds the access key for p.
func Compute(p Params) (Key, error) {
	yymm, err := yearMonth(p.EmissionDate)
	if err != nil {
		return Key{}, err
	}

	code := OnlyDigits(p.RandomCode)
	if code == "" {
		code, err = RandomCode()
		if err != nil {
			return Key{}, fiscalerr.Wrap(fiscalerr.KindDocumentBuild, err, "generating cNF")
		}
	} else {
		code = PadLeft(code, 8)
	}

	taxpayer := OnlyDigits(p.TaxpayerID)
	if len(taxpayer) > 14 {
		taxpayer = taxpayer[:14]
	}

	var b strings.Builder
	b.WriteString(PadLeft(fmt.Sprint(p.StateCode), 2))
	b.WriteString(yymm)
	b.WriteString(PadLeft(taxpayer, 14))
	b.WriteString(PadLeft(fmt.Sprint(p.Model), 2))
	b.WriteString(PadLeft(fmt.Sprint(p.Series), 3))
	b.WriteString(PadLeft(fmt.Sprint(p.Number), 9))
	b.WriteString(fmt.Sprint(p.EmissionType))
	b.WriteString(code)
	body := b.String()

	if len(body) != BodyLength {
		return Key{}, fiscalerr.Newf(fiscalerr.KindInvalidKeyLength,
			"access key body has %d digits, expected %d", len(body), BodyLength)
	}

	dv, err := CheckDigit(body)
	if err != nil {
		return Key{}, err
	}

	return Key{
		Value:      body + fmt.Sprint(dv),
		RandomCode: code,
		CheckDigit: dv,
	}, nil
}

// CheckDigit computes the mod-11 check digit of a digit string. Weights
// 2 through 9 are applied cyclically starting from the rightmost digit.
func CheckDigit(digits string) (int, error) {
	weight := 2
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, fiscalerr.Newf(fiscalerr.KindDocumentBuild, "non-digit %q in key body", c)
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}

	rem := sum % 11
	if rem < 2 {
		return 0, nil
	}
	return 11 - rem, nil
}

// Validate checks that key has 44 digits and a matching check digit.
func Validate(key string) error {
	if len(key) != KeyLength || OnlyDigits(key) != key {
		return fiscalerr.Build("chNFe", "access key must have exactly 44 digits")
	}
	dv, err := CheckDigit(key[:BodyLength])
	if err != nil {
		return err
	}
	if int(key[BodyLength]-'0') != dv {
		return fiscalerr.Build("chNFe", "access key check digit mismatch")
	}
	return nil
}

// StateCode returns the cUF encoded in the first two digits of key.
func StateCode(key string) string {
	if len(key) < 2 {
		return ""
	}
	return key[:2]
}

// RandomCode returns an 8-digit cNF in the range 00000001..99999999.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(99999999))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08d", n.Int64()+1), nil
}

// yearMonth extracts AAMM from an ISO 8601 date: characters 2-3 are the
// year and 5-6 the month.
func yearMonth(date string) (string, error) {
	if len(date) < 7 {
		return "", fiscalerr.Buildf("ide.dhEmi", "emission date %q is not ISO 8601", date)
	}
	yymm := date[2:4] + date[5:7]
	if OnlyDigits(yymm) != yymm {
		return "", fiscalerr.Buildf("ide.dhEmi", "emission date %q is not ISO 8601", date)
	}
	return yymm, nil
}
