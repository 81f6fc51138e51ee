package nfse

import (
	"strconv"
	"strings"

	"github.com/sirosfoundation/go-fiscal/pkg/accesskey"
	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// Lengths of the RPS signature string.
const (
	SignatureStringLength             = 86
	SignatureStringLengthIntermediary = 102
)

// Tax ID indicators of the signature string.
const (
	indicatorCPF    = "1"
	indicatorCNPJ   = "2"
	indicatorAbsent = "3"
)

// SignatureString builds the fixed-width string that is RSA-SHA1 signed
// into the Assinatura element of an RPS.
func SignatureString(r *RPS) (string, error) {
	if r.ChaveRPS == nil {
		return "", fiscalerr.Build("chaveRPS", "chaveRPS is required")
	}
	var b strings.Builder

	fields := []struct {
		name  string
		value string
		width int
		right bool
	}{
		{"inscricaoPrestador", accesskey.OnlyDigits(r.ChaveRPS.InscricaoPrestador.String()), 8, false},
		{"serieRPS", r.ChaveRPS.SerieRPS.String(), 5, true},
		{"numeroRPS", accesskey.OnlyDigits(r.ChaveRPS.NumeroRPS.String()), 12, false},
	}
	for _, f := range fields {
		if f.value == "" || len(f.value) > f.width {
			return "", fiscalerr.Buildf("chaveRPS."+f.name, "%s must have 1 to %d characters", f.name, f.width)
		}
		if f.right {
			b.WriteString(f.value + strings.Repeat(" ", f.width-len(f.value)))
		} else {
			b.WriteString(accesskey.PadLeft(f.value, f.width))
		}
	}

	date := strings.ReplaceAll(r.DataEmissao.String(), "-", "")
	if len(date) > 8 {
		date = date[:8]
	}
	if len(date) != 8 || accesskey.OnlyDigits(date) != date {
		return "", fiscalerr.Build("dataEmissao", "dataEmissao must be YYYY-MM-DD")
	}
	b.WriteString(date)

	for _, f := range []struct{ name, value string }{
		{"tributacaoRPS", r.TributacaoRPS.String()},
		{"statusRPS", r.StatusRPS.String()},
	} {
		if len(f.value) != 1 {
			return "", fiscalerr.Buildf(f.name, "%s must be a single character", f.name)
		}
		b.WriteString(f.value)
	}
	b.WriteString(flag(r.ISSRetido))

	for _, f := range []struct {
		name  string
		value *Decimal
	}{
		{"valorServicos", r.ValorServicos},
		{"valorDeducoes", r.ValorDeducoes},
	} {
		cents, err := centsField(f.name, f.value)
		if err != nil {
			return "", err
		}
		b.WriteString(cents)
	}

	code := accesskey.OnlyDigits(r.CodigoServico.String())
	if code == "" || len(code) > 5 {
		return "", fiscalerr.Build("codigoServico", "codigoServico must have 1 to 5 digits")
	}
	b.WriteString(accesskey.PadLeft(code, 5))

	payer, err := taxIDField("cpfCnpjTomador", r.CPFCNPJTomador)
	if err != nil {
		return "", err
	}
	b.WriteString(payer)

	want := SignatureStringLength
	if !r.CPFCNPJIntermediario.Empty() {
		inter, err := taxIDField("cpfCnpjIntermediario", r.CPFCNPJIntermediario)
		if err != nil {
			return "", err
		}
		b.WriteString(inter)
		b.WriteString(flag(r.ISSRetidoIntermediario))
		want = SignatureStringLengthIntermediary
	}

	s := b.String()
	if len(s) != want {
		return "", fiscalerr.Newf(fiscalerr.KindInvalidKeyLength,
			"RPS signature string has %d characters, expected %d", len(s), want)
	}
	return s, nil
}

func flag(v *bool) string {
	if v != nil && *v {
		return "S"
	}
	return "N"
}

func centsField(name string, d *Decimal) (string, error) {
	var cents int64
	if d != nil {
		cents = d.Cents()
	}
	if cents < 0 {
		return "", fiscalerr.Buildf(name, "%s must not be negative", name)
	}
	s := strconv.FormatInt(cents, 10)
	if len(s) > 15 {
		return "", fiscalerr.Buildf(name, "%s exceeds 15 digits in cents", name)
	}
	return accesskey.PadLeft(s, 15), nil
}

func taxIDField(name string, t *TaxID) (string, error) {
	if t.Empty() {
		return indicatorAbsent + strings.Repeat("0", 14), nil
	}
	indicator, id := indicatorCNPJ, accesskey.OnlyDigits(t.CNPJ.String())
	if t.CNPJ.Empty() {
		indicator, id = indicatorCPF, accesskey.OnlyDigits(t.CPF.String())
	}
	if id == "" || len(id) > 14 {
		return "", fiscalerr.Buildf(name, "%s must have up to 14 digits", name)
	}
	return indicator + accesskey.PadLeft(id, 14), nil
}
