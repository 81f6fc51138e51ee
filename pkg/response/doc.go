// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package response normalizes tax authority SOAP responses into a single
canonical [Result].

Elements are matched by local name, so namespace prefixes chosen by the
server do not matter. Elements that may repeat are always read as lists:
one Erro and two Erro elements both yield a slice.

# Faults

A SOAP Fault in the body is reported as an UPSTREAM_FAULT error before the
payload is looked at. SOAP 1.1 servers deliver faults with HTTP 500; use
[DetectFault] on the body of a failed exchange to recover them:

	if f, ok := response.DetectFault(fe.Raw); ok {
		return response.FaultError(fe.Raw, f)
	}

A body that is not well-formed, lacks the expected wrapper or carries an
unreadable nested document is reported as UPSTREAM_RESPONSE_UNPARSEABLE.
Both errors keep the raw response.

# São Paulo NFS-e

The operation result travels as an escaped XML document in RetornoXML.
[ParseBatch], [ParseTestBatch], [ParseRPS] and [ParseLotStatus] accept the
wrapper names observed for each operation. Success is read from
Cabecalho/Sucesso (case-insensitive "true"); Erro and Alerta elements are
collected independently of it. A lot status response embeds the lot's own
result in ResultadoOperacao, returned as Result.Operation.

# NF-e

[ParseNFe] reads the ret* document inside nfeResultMsg. Success is true
when the cStat belongs to the accepted set of the family:

	retEnviNFe       100, 150 (protNFe); 103, 104, 105 (lot only)
	retConsSitNFe    100, 101, 110, 150, 151, 155
	retInutNFe       102
	retEnvEvento     101, 135, 155 for every retEvento
	retConsStatServ  107

Any other status is reported in Errors.

# References

  - NF-e Manual de Orientação do Contribuinte 7.0, section 5 (tabela de códigos de erros e descrições)
  - Prefeitura de São Paulo, NFS-e web service manual, layout v01-1
*/
package response
