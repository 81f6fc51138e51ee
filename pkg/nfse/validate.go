package nfse

import (
	"fmt"

	"github.com/sirosfoundation/go-fiscal/pkg/fiscalerr"
)

// LayoutVersion is the only São Paulo layout accepted.
const LayoutVersion = "v01-1"

// CheckLayout rejects any layout other than LayoutVersion.
func CheckLayout(v string) error {
	if v != LayoutVersion {
		return fiscalerr.Newf(fiscalerr.KindUnsupportedLayout,
			"layout %q is not supported, use %s", v, LayoutVersion)
	}
	return nil
}

func missing(field string) error {
	return fiscalerr.Build(field, field+" is required")
}

// ValidateBatch checks the members the batch builder dereferences. A
// declared RPS count that differs from the records sent is a build error.
func ValidateBatch(l *Lote) error {
	if l == nil {
		return missing("lote")
	}
	c := l.Cabecalho
	switch {
	case c == nil:
		return missing("lote.cabecalho")
	case c.CPFCNPJRemetente.Empty():
		return missing("lote.cabecalho.cpfCnpjRemetente")
	case c.DtInicio.Empty():
		return missing("lote.cabecalho.dtInicio")
	case c.DtFim.Empty():
		return missing("lote.cabecalho.dtFim")
	case c.QtdRPS == nil:
		return missing("lote.cabecalho.qtdRPS")
	case c.ValorTotalServicos == nil:
		return missing("lote.cabecalho.valorTotalServicos")
	case len(l.RPS) == 0:
		return fiscalerr.Build("lote.rps", "lote.rps must contain at least one RPS")
	case *c.QtdRPS != len(l.RPS):
		return fiscalerr.Buildf("lote.cabecalho.qtdRPS",
			"qtdRPS declares %d RPS but the batch carries %d", *c.QtdRPS, len(l.RPS))
	}
	for i := range l.RPS {
		if err := ValidateRPS(&l.RPS[i], i); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSingle checks a synchronous request, which carries exactly one
// RPS. The header needs only the sender.
func ValidateSingle(l *Lote) error {
	switch {
	case l == nil:
		return missing("lote")
	case l.Cabecalho == nil:
		return missing("lote.cabecalho")
	case l.Cabecalho.CPFCNPJRemetente.Empty():
		return missing("lote.cabecalho.cpfCnpjRemetente")
	case len(l.RPS) != 1:
		return fiscalerr.Buildf("lote.rps", "synchronous send takes exactly one RPS, got %d", len(l.RPS))
	}
	return ValidateRPS(&l.RPS[0], 0)
}

// ValidateRPS checks the required members of the i-th RPS.
func ValidateRPS(r *RPS, i int) error {
	name := ""
	switch {
	case r.ChaveRPS == nil:
		name = "chaveRPS"
	case r.ChaveRPS.InscricaoPrestador.Empty():
		name = "chaveRPS.inscricaoPrestador"
	case r.ChaveRPS.SerieRPS.Empty():
		name = "chaveRPS.serieRPS"
	case r.ChaveRPS.NumeroRPS.Empty():
		name = "chaveRPS.numeroRPS"
	case r.TipoRPS.Empty():
		name = "tipoRPS"
	case r.DataEmissao.Empty():
		name = "dataEmissao"
	case r.StatusRPS.Empty():
		name = "statusRPS"
	case r.TributacaoRPS.Empty():
		name = "tributacaoRPS"
	case r.ValorServicos == nil:
		name = "valorServicos"
	case r.ValorDeducoes == nil:
		name = "valorDeducoes"
	case r.CodigoServico.Empty():
		name = "codigoServico"
	case r.AliquotaServicos == nil:
		name = "aliquotaServicos"
	case r.ISSRetido == nil:
		name = "issRetido"
	case r.Discriminacao.Empty():
		name = "discriminacao"
	default:
		return nil
	}
	return fiscalerr.Build(fmt.Sprintf("lote.rps[%d].%s", i, name),
		fmt.Sprintf("RPS %d: %s is required", i+1, name))
}

// ValidateLotStatus checks a lot status query.
func ValidateLotStatus(q *LotStatusRequest) error {
	switch {
	case q.CPFCNPJRemetente.Empty():
		return missing("cpfCnpjRemetente")
	case q.NumeroProtocolo.Empty():
		return missing("numeroProtocolo")
	}
	return nil
}
