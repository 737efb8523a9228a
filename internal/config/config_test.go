package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
mode = "serve"
log_level = "debug"

[chain]
rpc_url = "https://rpc.sepolia.org"
contract_address = "0x1111111111111111111111111111111111111111"
owner_address = "0x2222222222222222222222222222222222222222"
chain_id = 11155111
call_timeout = "10s"

[refresh]
concurrency = 4
interval = "30s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chain.RPCURL != "https://rpc.sepolia.org" {
		t.Errorf("Chain.RPCURL = %q", cfg.Chain.RPCURL)
	}
	if cfg.Chain.CallTimeout.Duration != 10*time.Second {
		t.Errorf("Chain.CallTimeout = %v, want 10s", cfg.Chain.CallTimeout.Duration)
	}
	if cfg.Refresh.Concurrency != 4 {
		t.Errorf("Refresh.Concurrency = %d, want 4", cfg.Refresh.Concurrency)
	}
	// Unset sections keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want default 5432", cfg.Postgres.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WAGERD_CHAIN_RPC_URL", "https://override.example")
	t.Setenv("WAGERD_WALLET_PRIVATE_KEY", "0xdeadbeef")
	t.Setenv("WAGERD_REFRESH_CONCURRENCY", "16")
	t.Setenv("WAGERD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	path := writeTempConfig(t, `
[chain]
rpc_url = "https://rpc.sepolia.org"
contract_address = "0x1111111111111111111111111111111111111111"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chain.RPCURL != "https://override.example" {
		t.Errorf("env override not applied: Chain.RPCURL = %q", cfg.Chain.RPCURL)
	}
	if cfg.Wallet.PrivateKey != "0xdeadbeef" {
		t.Errorf("Wallet.PrivateKey = %q", cfg.Wallet.PrivateKey)
	}
	if cfg.Refresh.Concurrency != 16 {
		t.Errorf("Refresh.Concurrency = %d, want 16", cfg.Refresh.Concurrency)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.Chain.ContractAddress = "0x1111111111111111111111111111111111111111"
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad mode", func(c *Config) { c.Mode = "turbo" }, "unknown mode"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "unknown log_level"},
		{"missing rpc url", func(c *Config) { c.Chain.RPCURL = "" }, "rpc_url"},
		{"bad contract address", func(c *Config) { c.Chain.ContractAddress = "nope" }, "contract_address"},
		{"bad owner address", func(c *Config) { c.Chain.OwnerAddress = "0x123" }, "owner_address"},
		{"keyfile without password", func(c *Config) { c.Wallet.EncryptedKeyPath = "/tmp/key.json" }, "key_password"},
		{"zero concurrency", func(c *Config) { c.Refresh.Concurrency = 0 }, "concurrency"},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }, "server: port"},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true; c.S3.Bucket = "" }, "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Chain.ContractAddress = "0x1111111111111111111111111111111111111111"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xsecret"
	cfg.Redis.Password = "hunter2"

	red := RedactedConfig(&cfg)

	if red.Wallet.PrivateKey != "***" || red.Redis.Password != "***" {
		t.Error("secrets not redacted")
	}
	if cfg.Wallet.PrivateKey != "0xsecret" {
		t.Error("original config mutated")
	}
}
