package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment selects the tax authority environment.
type Environment string

// Environments
const (
	Production   Environment = "producao"
	Homologation Environment = "homologacao"
)

// ParseEnvironment accepts the API spellings of an environment. The NFS-e
// routes call homologation "teste".
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "producao", "production", "prod", "1":
		return Production, nil
	case "homologacao", "homologation", "hom", "teste", "test", "2":
		return Homologation, nil
	}
	return "", fmt.Errorf("unknown environment %q (homologacao | producao)", s)
}

// TpAmb returns the tpAmb code written into NF-e documents.
func (e Environment) TpAmb() int {
	if e == Production {
		return 1
	}
	return 2
}

// Service is an NF-e 4.00 web service.
type Service string

// NF-e services
const (
	ServiceAutorizacao       Service = "autorizacao"
	ServiceConsultaProtocolo Service = "consultaProtocolo"
	ServiceInutilizacao      Service = "inutilizacao"
	ServiceRecepcaoEvento    Service = "recepcaoEvento"
	ServiceStatusServico     Service = "statusServico"
)

// Virtual authority codes
const (
	CodeSVCAN = 91
	CodeSVRS  = 90
)

const (
	nationalProduction   = "https://nfe.fazenda.gov.br"
	nationalHomologation = "https://hom1.nfe.fazenda.gov.br"
)

var servicePaths = map[Service]string{
	ServiceAutorizacao:       "/NFeAutorizacao4/NFeAutorizacao4.asmx",
	ServiceConsultaProtocolo: "/NfeConsultaProtocolo4/NfeConsultaProtocolo4.asmx",
	ServiceInutilizacao:      "/NfeInutilizacao4/NfeInutilizacao4.asmx",
	ServiceRecepcaoEvento:    "/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
	ServiceStatusServico:     "/NFeStatusServico4/NFeStatusServico4.asmx",
}

var serviceNamespaces = map[Service]string{
	ServiceAutorizacao:       "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4",
	ServiceConsultaProtocolo: "http://www.portalfiscal.inf.br/nfe/wsdl/NfeConsultaProtocolo4",
	ServiceInutilizacao:      "http://www.portalfiscal.inf.br/nfe/wsdl/NfeInutilizacao4",
	ServiceRecepcaoEvento:    "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4",
	ServiceStatusServico:     "http://www.portalfiscal.inf.br/nfe/wsdl/NFeStatusServico4",
}

// endpoints maps service, environment and IBGE UF code (or 91 / 90) to the
// NF-e 4.00 web service URL. UFs that are not listed use SVC-AN.
var endpoints = map[Service]map[Environment]map[int]string{
	ServiceAutorizacao: {
		Homologation: {
			12: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // AC via SVC-AN
			27: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // AL via SVC-AN
			16: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // AP via SVC-AN
			13: "https://homnfe.sefaz.am.gov.br/services2/services/NfeAutorizacao4",             // AM
			29: "https://hnfe.sefaz.ba.gov.br/webservices/NFeAutorizacao4/NFeAutorizacao4.asmx", // BA
			23: "https://nfehom.sefaz.ce.gov.br/nfe4/services/NFeAutorizacao4",                  // CE
			53: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // DF via SVC-AN
			32: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // ES via SVC-AN
			52: "https://hom.nfe.sefaz.go.gov.br/nfe/services/NFeAutorizacao4",                  // GO
			21: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // MA via SVC-AN
			51: "https://homologacao.sefaz.mt.gov.br/nfews/v2/services/NfeAutorizacao4",         // MT
			50: "https://hom.nfe.fazenda.ms.gov.br/NfeAutorizacao4/NFeAutorizacao4.asmx",        // MS
			31: "https://hnfe.fazenda.mg.gov.br/nfe/services/NFeAutorizacao4",                   // MG
			15: "https://appnf.sefa.pa.gov.br/nfe-services/services/NFeAutorizacao4",            // PA
			25: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // PB via SVC-AN
			41: "https://homologacao.nfe.fazenda.pr.gov.br/nfe/services/NFeAutorizacao4",        // PR
			26: "https://nfehom.sefaz.pe.gov.br/nfe-service/services/NFeAutorizacao4",           // PE
			22: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // PI via SVC-AN
			33: "https://hom.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",            // RJ via SVRS
			24: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // RN via SVC-AN
			43: "https://hom.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",            // RS
			11: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // RO via SVC-AN
			14: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // RR via SVC-AN
			42: "https://hom.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",            // SC via SVRS
			35: "https://homologacao.nfe.fazenda.sp.gov.br/ws/NfeAutorizacao4.asmx",             // SP
			28: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // SE via SVC-AN
			17: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // TO via SVC-AN
			91: "https://hom1.nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",          // SVC-AN
			90: "https://hom.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",            // SVRS
		},
		Production: {
			12: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // AC via SVC-AN
			27: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // AL via SVC-AN
			16: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // AP via SVC-AN
			13: "https://nfe.sefaz.am.gov.br/services2/services/NfeAutorizacao4",               // AM
			29: "https://nfe.sefaz.ba.gov.br/webservices/NFeAutorizacao4/NFeAutorizacao4.asmx", // BA
			23: "https://nfece.sefaz.ce.gov.br/nfe4/services/NFeAutorizacao4",                  // CE
			53: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // DF via SVC-AN
			32: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // ES via SVC-AN
			52: "https://nfe.sefaz.go.gov.br/nfe/services/NFeAutorizacao4",                     // GO
			21: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // MA via SVC-AN
			51: "https://nfe.sefaz.mt.gov.br/nfews/v2/services/NfeAutorizacao4",                // MT
			50: "https://nfe.fazenda.ms.gov.br/NfeAutorizacao4/NFeAutorizacao4.asmx",           // MS
			31: "https://nfe.fazenda.mg.gov.br/nfe/services/NFeAutorizacao4",                   // MG
			15: "https://app.sefa.pa.gov.br/nfe/services/NFeAutorizacao4",                      // PA
			25: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // PB via SVC-AN
			41: "https://nfe.fazenda.pr.gov.br/nfe/services/NFeAutorizacao4",                   // PR
			26: "https://nfe.sefaz.pe.gov.br/nfe-service/services/NFeAutorizacao4",             // PE
			22: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // PI via SVC-AN
			33: "https://nfe.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",           // RJ via SVRS
			24: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // RN via SVC-AN
			43: "https://nfe.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",           // RS
			11: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // RO via SVC-AN
			14: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // RR via SVC-AN
			42: "https://nfe.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",           // SC via SVRS
			35: "https://nfe.fazenda.sp.gov.br/ws/NfeAutorizacao4.asmx",                        // SP
			28: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // SE via SVC-AN
			17: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // TO via SVC-AN
			91: "https://nfe.fazenda.gov.br/NFeAutorizacao4/NFeAutorizacao4.asmx",              // SVC-AN
			90: "https://nfe.sefaz.rs.gov.br/ws/NFeAutorizacao/NFeAutorizacao4.asmx",           // SVRS
		},
	},
	ServiceConsultaProtocolo: {
		Homologation: {
			91: "https://hom1.nfe.fazenda.gov.br/NfeConsultaProtocolo4/NfeConsultaProtocolo4.asmx",
			90: "https://hom.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
			35: "https://homologacao.nfe.fazenda.sp.gov.br/ws/NfeConsultaProtocolo4.asmx",
			31: "https://hnfe.fazenda.mg.gov.br/nfe/services/NfeConsultaProtocolo4",
			43: "https://hom.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
			33: "https://hom.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
			42: "https://hom.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
		},
		Production: {
			91: "https://nfe.fazenda.gov.br/NfeConsultaProtocolo4/NfeConsultaProtocolo4.asmx",
			90: "https://nfe.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
			35: "https://nfe.fazenda.sp.gov.br/ws/NfeConsultaProtocolo4.asmx",
			31: "https://nfe.fazenda.mg.gov.br/nfe/services/NfeConsultaProtocolo4",
			43: "https://nfe.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
			33: "https://nfe.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
			42: "https://nfe.sefaz.rs.gov.br/ws/NfeConsultaProtocolo/NfeConsultaProtocolo4.asmx",
		},
	},
	ServiceInutilizacao: {
		Homologation: {
			91: "https://hom1.nfe.fazenda.gov.br/NfeInutilizacao4/NfeInutilizacao4.asmx",
			90: "https://hom.sefaz.rs.gov.br/ws/NfeInutilizacao/NfeInutilizacao4.asmx",
			35: "https://homologacao.nfe.fazenda.sp.gov.br/ws/NfeInutilizacao4.asmx",
			31: "https://hnfe.fazenda.mg.gov.br/nfe/services/NfeInutilizacao4",
			43: "https://hom.sefaz.rs.gov.br/ws/NfeInutilizacao/NfeInutilizacao4.asmx",
		},
		Production: {
			91: "https://nfe.fazenda.gov.br/NfeInutilizacao4/NfeInutilizacao4.asmx",
			90: "https://nfe.sefaz.rs.gov.br/ws/NfeInutilizacao/NfeInutilizacao4.asmx",
			35: "https://nfe.fazenda.sp.gov.br/ws/NfeInutilizacao4.asmx",
			31: "https://nfe.fazenda.mg.gov.br/nfe/services/NfeInutilizacao4",
			43: "https://nfe.sefaz.rs.gov.br/ws/NfeInutilizacao/NfeInutilizacao4.asmx",
		},
	},
	ServiceRecepcaoEvento: {
		Homologation: {
			91: "https://hom1.nfe.fazenda.gov.br/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
			90: "https://hom.sefaz.rs.gov.br/ws/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
			35: "https://homologacao.nfe.fazenda.sp.gov.br/ws/NFeRecepcaoEvento4.asmx",
			31: "https://hnfe.fazenda.mg.gov.br/nfe/services/NFeRecepcaoEvento4",
			43: "https://hom.sefaz.rs.gov.br/ws/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
		},
		Production: {
			91: "https://nfe.fazenda.gov.br/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
			90: "https://nfe.sefaz.rs.gov.br/ws/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
			35: "https://nfe.fazenda.sp.gov.br/ws/NFeRecepcaoEvento4.asmx",
			31: "https://nfe.fazenda.mg.gov.br/nfe/services/NFeRecepcaoEvento4",
			43: "https://nfe.sefaz.rs.gov.br/ws/NFeRecepcaoEvento4/NFeRecepcaoEvento4.asmx",
		},
	},
	ServiceStatusServico: {
		Homologation: {
			91: "https://hom1.nfe.fazenda.gov.br/NFeStatusServico4/NFeStatusServico4.asmx",
			90: "https://hom.sefaz.rs.gov.br/ws/NFeStatusServico/NFeStatusServico4.asmx",
			35: "https://homologacao.nfe.fazenda.sp.gov.br/ws/NFeStatusServico4.asmx",
			31: "https://hnfe.fazenda.mg.gov.br/nfe/services/NFeStatusServico4",
			43: "https://hom.sefaz.rs.gov.br/ws/NFeStatusServico/NFeStatusServico4.asmx",
		},
		Production: {
			91: "https://nfe.fazenda.gov.br/NFeStatusServico4/NFeStatusServico4.asmx",
			90: "https://nfe.sefaz.rs.gov.br/ws/NFeStatusServico/NFeStatusServico4.asmx",
			35: "https://nfe.fazenda.sp.gov.br/ws/NFeStatusServico4.asmx",
			31: "https://nfe.fazenda.mg.gov.br/nfe/services/NFeStatusServico4",
			43: "https://nfe.sefaz.rs.gov.br/ws/NFeStatusServico/NFeStatusServico4.asmx",
		},
	},
}

// Namespace returns the WSDL namespace of s.
func (s Service) Namespace() string { return serviceNamespaces[s] }

// Valid reports whether s is a known service.
func (s Service) Valid() bool {
	_, ok := servicePaths[s]
	return ok
}

// Endpoint resolves the URL of service for the given UF code and
// environment, falling back to the national SVC-AN host.
func Endpoint(service Service, cUF string, env Environment) (string, error) {
	if !service.Valid() {
		return "", fmt.Errorf("unknown NF-e service %q", service)
	}
	if env != Production {
		env = Homologation
	}
	if code, err := strconv.Atoi(strings.TrimSpace(cUF)); err == nil {
		if url, ok := endpoints[service][env][code]; ok {
			return url, nil
		}
	}
	base := nationalHomologation
	if env == Production {
		base = nationalProduction
	}
	return base + servicePaths[service], nil
}

// SaoPauloEndpoints holds the URLs of the São Paulo NFS-e web services.
// The municipality does not publish test URLs, so the test pair is
// configuration.
type SaoPauloEndpoints struct {
	Async     string `yaml:"async"`
	Sync      string `yaml:"sync"`
	TestAsync string `yaml:"test_async"`
	TestSync  string `yaml:"test_sync"`
}

// DefaultSaoPauloEndpoints returns the published production URLs and the
// conventional homologation host for tests.
func DefaultSaoPauloEndpoints() SaoPauloEndpoints {
	return SaoPauloEndpoints{
		Async:     "https://nfews.prefeitura.sp.gov.br/lotenfeasync.asmx",
		Sync:      "https://nfe.prefeitura.sp.gov.br/ws/lotenfe.asmx",
		TestAsync: "https://nfews-homologacao.prefeitura.sp.gov.br/lotenfeasync.asmx",
		TestSync:  "https://nfews-homologacao.prefeitura.sp.gov.br/lotenfe.asmx",
	}
}

// For returns the URL serving op in env. Empty fields fall back to the
// defaults.
func (e SaoPauloEndpoints) For(op Operation, env Environment) string {
	d := DefaultSaoPauloEndpoints()
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	switch {
	case op.Sync && env == Production:
		return pick(e.Sync, d.Sync)
	case op.Sync:
		return pick(e.TestSync, d.TestSync)
	case env == Production:
		return pick(e.Async, d.Async)
	default:
		return pick(e.TestAsync, d.TestAsync)
	}
}
