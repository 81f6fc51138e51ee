// Package config handles configuration loading for the fiscal gateway.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), then overlaid with FISCAL_*
// environment variables so secrets and deployment knobs can be injected at
// runtime without touching the file.
//
// # Configuration Sections
//
//   - server: HTTP listener, timeouts, body limit, rate limit, environment
//   - storage: account store driver (file, mongodb or postgres)
//   - security: credential encryption key
//   - transport: SOAP client timeout, TLS floor and NF-e endpoint overrides
//   - nfse: municipal endpoints (São Paulo production and test URLs)
//   - signing: signature self-check after signing
//
// # Example Configuration
//
//	server:
//	  port: 8080
//	  environment: prod
//	  rateLimit:
//	    rps: 50
//	    burst: 100
//
//	storage:
//	  driver: mongodb
//	  mongodb:
//	    uri: ${MONGODB_URI}
//	    database: fiscal
//
//	security:
//	  encryptionKey: ${FISCAL_ENCRYPTION_KEY}
//
//	transport:
//	  timeout: 60s
//	  nfeEndpoints:
//	    - service: autorizacao
//	      uf: "35"
//	      environment: homologacao
//	      url: https://proxy.internal/sp/NfeAutorizacao4.asmx
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-fiscal/pkg/transport"
)

// DefaultEncryptionKey is the placeholder shipped in sample configuration.
// It is refused in production.
const DefaultEncryptionKey = "change-this-to-a-secure-random-key-with-at-least-32-characters"

// MinEncryptionKeyLength is the minimum length of security.encryptionKey.
const MinEncryptionKeyLength = 32

// Config is the root configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Security  SecurityConfig  `yaml:"security"`
	Transport TransportConfig `yaml:"transport"`
	NFSe      NFSeConfig      `yaml:"nfse"`
	Signing   SigningConfig   `yaml:"signing"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Environment     string        `yaml:"environment"` // dev, test, staging or prod
	LogLevel        string        `yaml:"logLevel"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	RateLimit       struct {
		RPS   int32 `yaml:"rps"` // 0 disables rate limiting
		Burst int32 `yaml:"burst"`
	} `yaml:"rateLimit"`
	TLS struct {
		Enabled  bool   `yaml:"enabled"`
		CertFile string `yaml:"certFile"`
		KeyFile  string `yaml:"keyFile"`
	} `yaml:"tls"`
}

// StorageConfig holds account store settings
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	File     FileConfig     `yaml:"file"`
	MongoDB  MongoDBConfig  `yaml:"mongodb"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig holds settings of the file account store
type FileConfig struct {
	DataDir string `yaml:"dataDir"`
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int32         `yaml:"maxConnections"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// SecurityConfig holds credential encryption settings
type SecurityConfig struct {
	EncryptionKey string `yaml:"encryptionKey"`
}

// TransportConfig holds SOAP client settings
type TransportConfig struct {
	Timeout            time.Duration      `yaml:"timeout"`
	MinTLSVersion      string             `yaml:"minTLSVersion"` // "1.2" or "1.3"
	InsecureSkipVerify bool               `yaml:"insecureSkipVerify"`
	UserAgent          string             `yaml:"userAgent"`
	NFeEndpoints       []EndpointOverride `yaml:"nfeEndpoints"`
}

// EndpointOverride replaces the NF-e endpoint of one service, UF and
// environment.
type EndpointOverride struct {
	Service     string `yaml:"service"`
	UF          string `yaml:"uf"`
	Environment string `yaml:"environment"`
	URL         string `yaml:"url"`
}

// NFSeConfig holds municipal NFS-e settings
type NFSeConfig struct {
	SaoPaulo transport.SaoPauloEndpoints `yaml:"saoPaulo"`
}

// SigningConfig holds signature settings
type SigningConfig struct {
	// VerifyAfterSign checks every enveloped signature before sending.
	VerifyAfterSign bool `yaml:"verifyAfterSign"`
}

// envOverlay lists the environment variables applied over the file.
type envOverlay struct {
	Environment   string `env:"FISCAL_ENVIRONMENT"`
	LogLevel      string `env:"FISCAL_LOG_LEVEL"`
	Host          string `env:"FISCAL_HOST"`
	Port          int    `env:"FISCAL_PORT"`
	EncryptionKey string `env:"FISCAL_ENCRYPTION_KEY"`
	StorageDriver string `env:"FISCAL_STORAGE_DRIVER"`
	DataDir       string `env:"FISCAL_DATA_DIR"`
	MongoDBURI    string `env:"FISCAL_MONGODB_URI"`
	PostgresURL   string `env:"FISCAL_POSTGRES_URL"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// Load reads configuration from a YAML file. An empty path starts from
// defaults and the environment only.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse builds configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var o envOverlay
	if _, err := env.UnmarshalFromEnviron(&o); err != nil {
		return fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Server.Environment, o.Environment)
	set(&c.Server.LogLevel, o.LogLevel)
	set(&c.Server.Host, o.Host)
	set(&c.Security.EncryptionKey, o.EncryptionKey)
	set(&c.Storage.Driver, o.StorageDriver)
	set(&c.Storage.File.DataDir, o.DataDir)
	set(&c.Storage.MongoDB.URI, o.MongoDBURI)
	set(&c.Storage.Postgres.URL, o.PostgresURL)
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "dev"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Covers one SOAP exchange plus signing.
		c.Server.WriteTimeout = 90 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 10 << 20
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = c.Server.RateLimit.RPS * 2
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.File.DataDir == "" {
		c.Storage.File.DataDir = "./data"
	}
	if c.Storage.MongoDB.Database == "" {
		c.Storage.MongoDB.Database = "fiscal"
	}
	if c.Storage.MongoDB.Collection == "" {
		c.Storage.MongoDB.Collection = "accounts"
	}
	if c.Storage.Postgres.MaxConnections == 0 {
		c.Storage.Postgres.MaxConnections = 4
	}
	if c.Storage.Postgres.ConnectTimeout == 0 {
		c.Storage.Postgres.ConnectTimeout = 5 * time.Second
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = transport.DefaultTimeout
	}
	if c.Transport.MinTLSVersion == "" {
		c.Transport.MinTLSVersion = "1.2"
	}
	if c.Transport.UserAgent == "" {
		c.Transport.UserAgent = "go-fiscal/1.0"
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if !validEnvs[c.Server.Environment] {
		return fmt.Errorf("invalid server.environment: %s", c.Server.Environment)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.certFile and server.tls.keyFile are required when TLS is enabled")
	}

	if len(c.Security.EncryptionKey) < MinEncryptionKeyLength {
		return fmt.Errorf("security.encryptionKey must be at least %d characters long", MinEncryptionKeyLength)
	}
	if c.IsProduction() && c.Security.EncryptionKey == DefaultEncryptionKey {
		return fmt.Errorf("security.encryptionKey must be changed from the sample value in production")
	}

	switch c.Storage.Driver {
	case "file":
	case "mongodb":
		if c.Storage.MongoDB.URI == "" {
			return fmt.Errorf("storage.mongodb.uri is required when driver is 'mongodb'")
		}
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			return fmt.Errorf("storage.postgres.url is required when driver is 'postgres'")
		}
	default:
		return fmt.Errorf("storage.driver must be 'file', 'mongodb', or 'postgres', got '%s'", c.Storage.Driver)
	}

	switch c.Transport.MinTLSVersion {
	case "1.2", "1.3":
	default:
		return fmt.Errorf("transport.minTLSVersion must be '1.2' or '1.3', got '%s'", c.Transport.MinTLSVersion)
	}
	if c.Transport.InsecureSkipVerify && c.IsProduction() {
		return fmt.Errorf("transport.insecureSkipVerify is not allowed in production")
	}

	for i, o := range c.Transport.NFeEndpoints {
		if !transport.Service(o.Service).Valid() {
			return fmt.Errorf("transport.nfeEndpoints[%d]: unknown service %q", i, o.Service)
		}
		if _, err := transport.ParseEnvironment(o.Environment); err != nil {
			return fmt.Errorf("transport.nfeEndpoints[%d]: %w", i, err)
		}
		if !strings.HasPrefix(o.URL, "https://") && !strings.HasPrefix(o.URL, "http://") {
			return fmt.Errorf("transport.nfeEndpoints[%d]: url must be absolute", i)
		}
	}

	return nil
}

// IsProduction reports whether the server runs in the prod environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "prod"
}

// HTTPSConfig returns the SOAP client configuration.
func (c *TransportConfig) HTTPSConfig() *transport.HTTPSConfig {
	h := transport.DefaultHTTPSConfig()
	h.Timeout = c.Timeout
	h.InsecureSkipVerify = c.InsecureSkipVerify
	if c.MinTLSVersion == "1.3" {
		h.MinTLSVersion = transport.TLS13
	}
	if c.UserAgent != "" {
		h.UserAgent = c.UserAgent
	}
	return h
}

// EndpointOverrides indexes the NF-e endpoint overrides for lookup by the
// orchestration layer.
func (c *TransportConfig) EndpointOverrides() map[string]string {
	m := make(map[string]string, len(c.NFeEndpoints))
	for _, o := range c.NFeEndpoints {
		env, err := transport.ParseEnvironment(o.Environment)
		if err != nil {
			continue
		}
		m[OverrideKey(transport.Service(o.Service), o.UF, env)] = o.URL
	}
	return m
}

// OverrideKey is the lookup key of an NF-e endpoint override.
func OverrideKey(service transport.Service, uf string, env transport.Environment) string {
	return string(service) + "/" + string(env) + "/" + uf
}
