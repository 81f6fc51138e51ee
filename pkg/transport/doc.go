// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport implements the SOAP transport layer towards the tax
authorities.

It resolves web service endpoints, wraps signed documents in SOAP
envelopes and posts them over HTTPS with an optional client certificate.

# Endpoint Resolution

NF-e 4.00 endpoints are resolved from a static table keyed by service,
environment and IBGE UF code. The virtual codes 91 (SVC-AN) and 90 (SVRS)
address the shared national and regional services; UFs that are not listed
fall back to the SVC-AN host plus the service path:

	url, err := transport.Endpoint(transport.ServiceAutorizacao, "35", transport.Homologation)

São Paulo NFS-e endpoints come from [SaoPauloEndpoints], which keeps the
test URLs configurable.

# Envelopes

NF-e services use SOAP 1.2. The header block nfeCabecMsg carries the UF
code and versaoDados; the body block nfeDadosMsg carries the payload
verbatim:

	env, err := transport.NFeEnvelope(transport.ServiceAutorizacao, "35", signedXML)

São Paulo uses SOAP 1.1 with the request in a CDATA section of
MensagemXML. Asynchronous operations name the schema version field
versaoSchema; the synchronous EnvioRPS operation names it VersaoSchema:

	env, err := transport.NFSeEnvelope(transport.OpEnvioLoteRPS, 1, signedXML)

# Client Usage

A client is created per tenant certificate:

	config := transport.DefaultHTTPSConfig().WithCertificate(creds.TLSCertificate())
	client := transport.NewHTTPSClient(config, logger)
	defer client.Close()

	body, err := client.Send(ctx, url, env, transport.ContentTypeSOAP12, "")

Exactly one attempt is made. Statuses of 400 and above become
TRANSPORT_FAILURE errors whose sub-kind distinguishes 401, 403, 404, 5xx
and other statuses; network failures and timeouts are NO_RESPONSE. The
default timeout is 60 seconds and cancelling ctx aborts the request.

# Content Types

	ContentTypeSOAP12 = "application/soap+xml; charset=utf-8"
	ContentTypeSOAP11 = "text/xml; charset=utf-8"

# References

  - NF-e Manual de Orientação do Contribuinte 7.0, web service catalogue
  - Prefeitura de São Paulo, NFS-e web service manual, layout v01-1
  - SOAP 1.1: https://www.w3.org/TR/2000/NOTE-SOAP-20000508/
  - SOAP 1.2: https://www.w3.org/TR/soap12/
*/
package transport
