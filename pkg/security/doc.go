// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package security implements the two signature disciplines of Brazilian
fiscal documents and the certificate handling they share.

# Certificates

Tenant certificates arrive as PKCS#12 containers. OpenPKCS12 is the single
place key material is extracted; both signers and the mutual TLS client
consume the resulting Credentials:

	creds, err := security.OpenPKCS12(pfx, password)

A wrong passphrase is reported as INVALID_PASSWORD, every other container
problem as INVALID_CERTIFICATE.

# Enveloped XML-DSig

EnvelopedSigner signs an element by its Id attribute, or the whole
document when the Id is empty, using inclusive C14N 1.0 and the
enveloped-signature transform. The algorithm pair is fixed by a Profile:

  - ProfileNFe: SHA-256 digest, RSA-SHA256 signature (NF-e 4.00, events, inutilization)
  - ProfileNFSe: SHA-1 digest, RSA-SHA1 signature (São Paulo NFS-e batches)

The Signature element is placed right after the referenced element:

	signer, _ := security.NewEnvelopedSigner(creds, security.ProfileNFe)
	signed, err := signer.Sign(nfeXML, "NFe"+key)

VerifyEnveloped checks every signature of a document and is used for the
optional verify-after-sign step.

# Positional signatures

PositionalSigner signs the fixed-width RPS string with RSA-SHA1 and returns
it base64 encoded. It never sees XML.

# References

  - XML Signature Syntax and Processing: https://www.w3.org/TR/xmldsig-core/
  - Canonical XML 1.0: https://www.w3.org/TR/2001/REC-xml-c14n-20010315
  - Manual de Orientação do Contribuinte NF-e 4.00
  - NFS-e São Paulo, Manual de Utilização do Web Service v01-1
*/
package security
