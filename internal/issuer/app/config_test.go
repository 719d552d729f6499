package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
)

func validChainEnv(t *testing.T) {
	t.Setenv("CHAIN_RPC_URL", "http://localhost:8545")
	t.Setenv("BACKEND_PRIVATE_KEY", "0x01")
	t.Setenv("CREDENTIAL_CONTRACT", "0x1111111111111111111111111111111111111111")
	t.Setenv("DELEGATION_MANAGER", "0x3333333333333333333333333333333333333333")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, "store", cfg.RateLimitBackend)
	require.Equal(t, "file", cfg.MetadataBackend)
	require.Equal(t, 15*time.Minute, cfg.SessionTTL)
	require.Equal(t, 3*time.Minute, cfg.ChainConfirmTimeout)
	require.Equal(t, ratelimit.DefaultPolicies(), cfg.RateLimits)
	require.Empty(t, cfg.VerifiedIssuers)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ratelimit:
  issuance:
    requests: 5
    window: 30s
  ai:
    requests: 2
risk:
  verified_issuers:
    - "0xaaaa000000000000000000000000000000000001"
  model_url: https://models.example/v1
  model_timeout: 4s
metadata:
  public_url: https://cdn.example/meta
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RATELIMIT_AI_REQUESTS", "7")
	t.Setenv("RISK_MODEL_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 5, cfg.RateLimits.Issuance.Requests)
	require.Equal(t, 30*time.Second, cfg.RateLimits.Issuance.Window)
	require.Equal(t, "issuance", cfg.RateLimits.Issuance.Name)
	require.Equal(t, 7, cfg.RateLimits.AI.Requests, "env beats file")
	require.Equal(t, time.Minute, cfg.RateLimits.AI.Window)
	require.Equal(t, ratelimit.VerifyPolicy, cfg.RateLimits.Verify)

	require.Equal(t, []string{"0xaaaa000000000000000000000000000000000001"}, cfg.VerifiedIssuers)
	require.Equal(t, "https://models.example/v1", cfg.RiskModelURL)
	require.Equal(t, 2*time.Second, cfg.RiskModelTimeout)
	require.Equal(t, "https://cdn.example/meta", cfg.MetadataPublicURL)
}

func TestLoadConfigVerifiedIssuersEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("VERIFIED_ISSUERS", " 0xabc , ,0xdef")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"0xabc", "0xdef"}, cfg.VerifiedIssuers)
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ratelimit: [unclosed"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := LoadConfig()
	require.ErrorContains(t, err, "parse config file")

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadConfig()
	require.ErrorContains(t, err, "read config file")
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	validChainEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"postgres without url", func(c *Config) { c.DatabaseDriver = "postgres" }, "DATABASE_URL"},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "DATABASE_DRIVER"},
		{"unknown limiter", func(c *Config) { c.RateLimitBackend = "etcd" }, "RATELIMIT_BACKEND"},
		{"no rpc", func(c *Config) { c.ChainRPCURL = "" }, "CHAIN_RPC_URL"},
		{"no signer", func(c *Config) { c.BackendPrivateKey = "" }, "BACKEND_PRIVATE_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			tt.mutate(&c)
			require.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}
