// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package compression provides GZIP compression for the raw SOAP debug
payload returned to callers that ask for it.

# Compression

	compressor := compression.NewCompressor()
	compressed, err := compressor.Compress(envelope)
	original, err := compressor.Decompress(compressed)

Compress uses gzip level 9. Decompress refuses output larger than 64 MiB.

# Debug Payload

A request and response pair is packed into a [DebugPayload]:

	payload, err := compressor.NewDebugPayload(requestEnvelope, responseBody)

which serializes as

	{
	  "compression": "gzip",
	  "encoding": "base64",
	  "request": "H4sIAAAA...",
	  "response": "H4sIAAAA...",
	  "sizes": {
	    "requestBytes": 5120,
	    "responseBytes": 812,
	    "requestCompressedBytes": 1290,
	    "responseCompressedBytes": 402
	  }
	}

[Compressor.Decode] restores both sides; the fiscal-gateway debug command
prints them from a saved response.

# References

  - GZIP RFC 1952: https://datatracker.ietf.org/doc/html/rfc1952
  - Base64 RFC 4648: https://datatracker.ietf.org/doc/html/rfc4648
*/
package compression
