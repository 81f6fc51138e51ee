package compression

import (
	"encoding/base64"
	"fmt"
)

// Sizes reports the raw and compressed byte counts of a debug payload.
type Sizes struct {
	RequestBytes            int `json:"requestBytes"`
	ResponseBytes           int `json:"responseBytes"`
	RequestCompressedBytes  int `json:"requestCompressedBytes"`
	ResponseCompressedBytes int `json:"responseCompressedBytes"`
}

// DebugPayload carries a SOAP exchange back to the caller, gzip compressed
// and base64 encoded.
type DebugPayload struct {
	Compression string `json:"compression"`
	Encoding    string `json:"encoding"`
	Request     string `json:"request"`
	Response    string `json:"response"`
	Sizes       Sizes  `json:"sizes"`
}

// NewDebugPayload compresses a request and response pair. Either side may
// be empty, e.g. when no response was received.
func (c *Compressor) NewDebugPayload(request, response []byte) (*DebugPayload, error) {
	req, err := c.Compress(request)
	if err != nil {
		return nil, fmt.Errorf("compressing request: %w", err)
	}
	resp, err := c.Compress(response)
	if err != nil {
		return nil, fmt.Errorf("compressing response: %w", err)
	}
	return &DebugPayload{
		Compression: "gzip",
		Encoding:    "base64",
		Request:     base64.StdEncoding.EncodeToString(req),
		Response:    base64.StdEncoding.EncodeToString(resp),
		Sizes: Sizes{
			RequestBytes:            len(request),
			ResponseBytes:           len(response),
			RequestCompressedBytes:  len(req),
			ResponseCompressedBytes: len(resp),
		},
	}, nil
}

// Decode restores the request and response of p.
func (c *Compressor) Decode(p *DebugPayload) (request, response []byte, err error) {
	if p.Compression != "gzip" || p.Encoding != "base64" {
		return nil, nil, fmt.Errorf("unsupported debug payload %s/%s", p.Compression, p.Encoding)
	}
	if request, err = c.decodeSide(p.Request); err != nil {
		return nil, nil, fmt.Errorf("request: %w", err)
	}
	if response, err = c.decodeSide(p.Response); err != nil {
		return nil, nil, fmt.Errorf("response: %w", err)
	}
	return request, response, nil
}

func (c *Compressor) decodeSide(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return c.Decompress(b)
}
