package accesskey

import (
	"fmt"
	"strings"
)

// InutilizationParams identify a range of NF-e numbers to void.
type InutilizationParams struct {
	StateCode   int
	Year        int // four digits; only the last two are encoded
	CNPJ        string
	Model       int
	Series      int
	StartNumber int
	EndNumber   int
}

// InutilizationID returns the infInut Id:
// "ID" + cUF(2) + AA(2) + CNPJ(14) + mod(2) + serie(3) + nNFIni(9) + nNFFin(9).
func InutilizationID(p InutilizationParams) string {
	year := PadLeft(fmt.Sprint(p.Year), 4)
	return "ID" +
		PadLeft(fmt.Sprint(p.StateCode), 2) +
		year[len(year)-2:] +
		PadLeft(OnlyDigits(p.CNPJ), 14) +
		PadLeft(fmt.Sprint(p.Model), 2) +
		PadLeft(fmt.Sprint(p.Series), 3) +
		PadLeft(fmt.Sprint(p.StartNumber), 9) +
		PadLeft(fmt.Sprint(p.EndNumber), 9)
}

// EventID returns the infEvento Id: "ID" + tpEvento + chNFe + nSeqEvento(2).
func EventID(eventType, key string, seq int) string {
	return fmt.Sprintf("ID%s%s%02d", eventType, key, seq)
}

// OnlyDigits strips everything but ASCII digits.
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// PadLeft left-pads s with zeros to width. Longer strings are returned unchanged.
func PadLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
