package compression

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugPayload_RoundTrip(t *testing.T) {
	c := NewCompressor()
	request := []byte(`<soap12:Envelope>` + strings.Repeat("<det/>", 200) + `</soap12:Envelope>`)
	response := []byte(`<env:Envelope><env:Body><nfeResultMsg/></env:Body></env:Envelope>`)

	p, err := c.NewDebugPayload(request, response)
	require.NoError(t, err)

	assert.Equal(t, "gzip", p.Compression)
	assert.Equal(t, "base64", p.Encoding)
	assert.Equal(t, len(request), p.Sizes.RequestBytes)
	assert.Equal(t, len(response), p.Sizes.ResponseBytes)
	assert.Less(t, p.Sizes.RequestCompressedBytes, p.Sizes.RequestBytes)

	raw, err := base64.StdEncoding.DecodeString(p.Request)
	require.NoError(t, err)
	assert.Equal(t, p.Sizes.RequestCompressedBytes, len(raw))

	req, resp, err := c.Decode(p)
	require.NoError(t, err)
	assert.Equal(t, request, req)
	assert.Equal(t, response, resp)
}

func TestDebugPayload_JSONShape(t *testing.T) {
	p, err := NewCompressor().NewDebugPayload([]byte("<a/>"), nil)
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "gzip", m["compression"])
	assert.Equal(t, "base64", m["encoding"])
	sizes, ok := m["sizes"].(map[string]any)
	require.True(t, ok)
	for _, k := range []string{"requestBytes", "responseBytes", "requestCompressedBytes", "responseCompressedBytes"} {
		assert.Contains(t, sizes, k)
	}
	assert.EqualValues(t, 0, sizes["responseBytes"])
}

func TestDebugPayload_DecodeErrors(t *testing.T) {
	c := NewCompressor()

	_, _, err := c.Decode(&DebugPayload{Compression: "zstd", Encoding: "base64"})
	assert.Error(t, err)

	_, _, err = c.Decode(&DebugPayload{Compression: "gzip", Encoding: "base64", Request: "!!!"})
	assert.ErrorContains(t, err, "request")

	notGzip := base64.StdEncoding.EncodeToString([]byte("plain"))
	_, _, err = c.Decode(&DebugPayload{Compression: "gzip", Encoding: "base64", Request: notGzip})
	assert.Error(t, err)
}
