// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package gofiscal implements a multi-tenant gateway for Brazilian electronic
fiscal documents.

# Overview

go-fiscal accepts JSON requests from tenants, builds the NF-e 4.00 and São
Paulo NFS-e XML documents the tax authorities expect, signs them with the
tenant's ICP-Brasil A1 certificate, transmits them as SOAP over mutual TLS
and returns a normalized JSON result.

Each tenant registers a PKCS#12 certificate once and receives an API key.
The certificate and its password are stored encrypted and are decrypted
for each call that needs them.

# Supported Services

NF-e (model 55), SOAP 1.2 against the SEFAZ web services of every UF:

  - NFeAutorizacao4: synchronous authorization of a single NF-e
  - NFeConsultaProtocolo4: status of an NF-e by access key
  - NFeRecepcaoEvento4: cancellation events
  - NFeInutilizacao4: inutilization of a number range
  - NFeStatusServico4: availability of a SEFAZ service

São Paulo NFS-e, SOAP 1.1 against the Prefeitura de São Paulo:

  - EnvioLoteRPS and EnvioRPS: RPS submission, asynchronous or synchronous
  - TesteEnvioLoteRPS: validation of a lot without issuing NFS-e
  - ConsultaSituacaoLote: processing situation of a submitted lot

# Package Structure

	github.com/sirosfoundation/go-fiscal/pkg/accesskey   - 44-digit NF-e access keys
	github.com/sirosfoundation/go-fiscal/pkg/nfe         - NF-e JSON model and XML builders
	github.com/sirosfoundation/go-fiscal/pkg/nfse        - São Paulo NFS-e model and XML builders
	github.com/sirosfoundation/go-fiscal/pkg/security    - PKCS#12, XML-DSig and RPS signatures
	github.com/sirosfoundation/go-fiscal/pkg/transport   - SOAP envelopes, endpoints and mTLS client
	github.com/sirosfoundation/go-fiscal/pkg/response    - Normalization of SEFAZ and NFS-e answers
	github.com/sirosfoundation/go-fiscal/pkg/compression - GZIP debug payloads
	github.com/sirosfoundation/go-fiscal/pkg/fiscalerr   - Classified errors

The HTTP server lives in internal/server and the command in
cmd/fiscal-gateway.

# Quick Start

	fiscal-gateway serve --config config.yaml

	curl -F certificado=@empresa.pfx -F senha=secret \
	    http://localhost:8080/api/v1/account/setup

	curl -H "X-API-Key: $KEY" -d '{"cUF":"35","ambiente":"homologacao"}' \
	    http://localhost:8080/api/v1/nfe/status

# License

BSD-2-Clause License
*/
package gofiscal
