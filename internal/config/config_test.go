package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-fiscal/pkg/transport"
)

const testKey = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FISCAL_ENCRYPTION_KEY", testKey)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Environment)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "./data", cfg.Storage.File.DataDir)
	assert.Equal(t, 60*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "1.2", cfg.Transport.MinTLSVersion)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://localhost:27017")
	path := writeConfig(t, `
server:
  port: 9090
  environment: staging
  rateLimit:
    rps: 10
storage:
  driver: mongodb
  mongodb:
    uri: ${TEST_MONGO_URI}
security:
  encryptionKey: `+testKey+`
transport:
  timeout: 30s
  minTLSVersion: "1.3"
nfse:
  saoPaulo:
    test_async: https://sp.test/lotenfeasync.asmx
signing:
  verifyAfterSign: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int32(20), cfg.Server.RateLimit.Burst)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoDB.URI)
	assert.Equal(t, "fiscal", cfg.Storage.MongoDB.Database)
	assert.Equal(t, "https://sp.test/lotenfeasync.asmx", cfg.NFSe.SaoPaulo.TestAsync)
	assert.True(t, cfg.Signing.VerifyAfterSign)

	h := cfg.Transport.HTTPSConfig()
	assert.Equal(t, 30*time.Second, h.Timeout)
	assert.Equal(t, uint16(transport.TLS13), h.MinTLSVersion)
}

func TestLoad_EnvironmentOverlay(t *testing.T) {
	t.Setenv("FISCAL_ENCRYPTION_KEY", testKey)
	t.Setenv("FISCAL_PORT", "7070")
	t.Setenv("FISCAL_STORAGE_DRIVER", "postgres")
	t.Setenv("FISCAL_POSTGRES_URL", "postgres://fiscal@localhost/fiscal")
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://fiscal@localhost/fiscal", cfg.Storage.Postgres.URL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"short key", "security:\n  encryptionKey: short\n", "at least 32"},
		{"default key in prod", "server:\n  environment: prod\nsecurity:\n  encryptionKey: " + DefaultEncryptionKey + "\n", "sample value"},
		{"bad environment", "server:\n  environment: qa\nsecurity:\n  encryptionKey: " + testKey + "\n", "server.environment"},
		{"mongodb without uri", "storage:\n  driver: mongodb\nsecurity:\n  encryptionKey: " + testKey + "\n", "storage.mongodb.uri"},
		{"unknown driver", "storage:\n  driver: redis\nsecurity:\n  encryptionKey: " + testKey + "\n", "storage.driver"},
		{"bad tls version", "transport:\n  minTLSVersion: \"1.0\"\nsecurity:\n  encryptionKey: " + testKey + "\n", "minTLSVersion"},
		{"insecure in prod", "server:\n  environment: prod\ntransport:\n  insecureSkipVerify: true\nsecurity:\n  encryptionKey: " + testKey + "\n", "insecureSkipVerify"},
		{"bad override service", "transport:\n  nfeEndpoints:\n    - service: cadastro\n      uf: \"35\"\n      environment: producao\n      url: https://x\nsecurity:\n  encryptionKey: " + testKey + "\n", "unknown service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestTransportConfig_EndpointOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
security:
  encryptionKey: ` + testKey + `
transport:
  nfeEndpoints:
    - service: autorizacao
      uf: "35"
      environment: teste
      url: https://proxy.internal/sp/NfeAutorizacao4.asmx
`))
	require.NoError(t, err)

	m := cfg.Transport.EndpointOverrides()
	assert.Equal(t, "https://proxy.internal/sp/NfeAutorizacao4.asmx",
		m[OverrideKey(transport.ServiceAutorizacao, "35", transport.Homologation)])
	assert.NotContains(t, m, OverrideKey(transport.ServiceAutorizacao, "35", transport.Production))
}
