package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[server]
port = 9090

[coingecko]
api_key = "file-key"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	// Untouched sections keep their defaults.
	if cfg.Supabase.Port != 5432 {
		t.Errorf("supabase port = %d, want default 5432", cfg.Supabase.Port)
	}
	if cfg.CoinGecko.APIKey != "file-key" {
		t.Errorf("coingecko key = %q", cfg.CoinGecko.APIKey)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SEQUENCE_SERVER_PORT", "7070")
	t.Setenv("SEQUENCE_COINGECKO_API_KEY", "env-key")
	t.Setenv("SEQUENCE_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SEQUENCE_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.CoinGecko.APIKey != "env-key" {
		t.Errorf("coingecko key = %q", cfg.CoinGecko.APIKey)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis enabled override ignored")
	}
}

func TestValidateRejectsPartialTurnkeyCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Turnkey.OrganizationID = "org-1"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("partial turnkey credentials accepted")
	}
	if !strings.Contains(err.Error(), "turnkey") {
		t.Errorf("error does not mention turnkey: %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("port 0 accepted")
	}
}

func TestTurnkeyConfigured(t *testing.T) {
	var tk TurnkeyConfig
	if tk.Configured() {
		t.Error("empty config reported configured")
	}
	tk = TurnkeyConfig{OrganizationID: "o", APIPublicKey: "p", APIPrivateKey: "k"}
	if !tk.Configured() {
		t.Error("complete config reported unconfigured")
	}
}
