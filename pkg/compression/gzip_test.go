package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusEnvelope = `<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">` +
	`<soap12:Body><nfeDadosMsg xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeStatusServico4">` +
	`<consStatServ xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">` +
	`<tpAmb>2</tpAmb><cUF>35</cUF><xServ>STATUS</xServ></consStatServ>` +
	`</nfeDadosMsg></soap12:Body></soap12:Envelope>`

func TestCompressor_RoundTrip(t *testing.T) {
	c := NewCompressor()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"envelope", []byte(statusEnvelope)},
		{"lot of envelopes", []byte(strings.Repeat(statusEnvelope, 500))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := c.Compress(tt.data)
			require.NoError(t, err)
			assert.NotEmpty(t, compressed)

			out, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(out))
			assert.True(t, bytes.Equal(tt.data, out))
		})
	}
}

func TestCompressor_RepetitiveXMLShrinks(t *testing.T) {
	data := []byte(strings.Repeat(statusEnvelope, 500))

	compressed, err := NewCompressor().Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data)/20)
}

func TestCompressor_WritesGzipMembers(t *testing.T) {
	compressed, err := NewCompressor().Compress([]byte(statusEnvelope))
	require.NoError(t, err)

	r, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, statusEnvelope, string(out))
}

func TestCompressor_DecompressRejects(t *testing.T) {
	c := NewCompressor()

	_, err := c.Decompress([]byte(statusEnvelope))
	assert.Error(t, err, "plain XML is not gzip")

	compressed, err := c.Compress([]byte(statusEnvelope))
	require.NoError(t, err)
	truncated := compressed[:len(compressed)/2]
	_, err = c.Decompress(truncated)
	assert.Error(t, err, "truncated stream")
}

func TestCompressor_DecompressLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("compresses more than 64 MiB")
	}
	var bomb bytes.Buffer
	w, err := gzip.NewWriterLevel(&bomb, gzip.BestSpeed)
	require.NoError(t, err)
	_, err = w.Write(make([]byte, maxDecompressedBytes+1))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = NewCompressor().Decompress(bomb.Bytes())
	assert.ErrorContains(t, err, "exceeds")
}
