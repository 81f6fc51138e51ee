package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/pkg/compression"
)

const (
	debugRequest  = `<soap12:Envelope><soap12:Body><consStatServ versao="4.00"/></soap12:Body></soap12:Envelope>`
	debugResponse = `<soap:Envelope><soap:Body><retConsStatServ><cStat>107</cStat></retConsStatServ></soap:Body></soap:Envelope>`
)

func TestDebugCommand(t *testing.T) {
	payload, err := compression.NewCompressor().NewDebugPayload([]byte(debugRequest), []byte(debugResponse))
	require.NoError(t, err)

	success, err := json.Marshal(map[string]any{"success": true, "data": map[string]any{"success": true, "soap": payload}})
	require.NoError(t, err)
	failure, err := json.Marshal(map[string]any{"success": false, "error": map[string]any{"code": "SOAP_FAULT", "soap": payload}})
	require.NoError(t, err)
	bare, err := json.Marshal(payload)
	require.NoError(t, err)

	dir := t.TempDir()
	for name, data := range map[string][]byte{"data": success, "error": failure, "bare": bare} {
		t.Run(name, func(t *testing.T) {
			out, err := run(t, "debug", writeFile(t, dir, name+".json", data))
			require.NoError(t, err)
			assert.Contains(t, out, debugRequest)
			assert.Contains(t, out, debugResponse)
		})
	}

	path := writeFile(t, dir, "side.json", success)
	out, err := run(t, "debug", "--side", "response", path)
	require.NoError(t, err)
	assert.Contains(t, out, debugResponse)
	assert.NotContains(t, out, debugRequest)

	_, err = run(t, "debug", "--side", "body", path)
	assert.ErrorContains(t, err, "--side")
}

func TestDebugCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "debug", writeFile(t, dir, "nosoap.json", []byte(`{"success":true,"data":{"success":true}}`)))
	assert.ErrorContains(t, err, "includeSoap")

	_, err = run(t, "debug", writeFile(t, dir, "broken.json", []byte(`{"success":`)))
	assert.ErrorContains(t, err, "reading response")

	notGzip := `{"compression":"gzip","encoding":"base64","request":"PHhtbC8+","response":""}`
	_, err = run(t, "debug", writeFile(t, dir, "plain.json", []byte(notGzip)))
	assert.ErrorContains(t, err, "decoding soap payload")
}
