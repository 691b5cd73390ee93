package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DefaultNetwork != "development" {
		t.Errorf("expected development default, got %q", cfg.DefaultNetwork)
	}
	if _, ok := cfg.Networks["development"]; !ok {
		t.Error("development network missing from defaults")
	}
	if cfg.Compiler.Command == "" {
		t.Error("compiler command default missing")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "redspot.yaml")
	content := `
default_network: testnet
networks:
  testnet:
    endpoint: http://10.0.0.1:9933
    accounts: ["//Bob"]
paths:
  artifacts: out
compiler:
  command: my-contract
  min_version: "1.2.0"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DefaultNetwork != "testnet" {
		t.Errorf("expected testnet, got %q", cfg.DefaultNetwork)
	}
	if cfg.Networks["testnet"].Endpoint != "http://10.0.0.1:9933" {
		t.Errorf("endpoint not parsed: %+v", cfg.Networks["testnet"])
	}
	if cfg.Paths.Artifacts != "out" {
		t.Errorf("explicit path lost: %q", cfg.Paths.Artifacts)
	}
	// file values merged on top of defaults, not replacing them
	if cfg.Paths.Contracts != "contracts" {
		t.Errorf("default path missing: %q", cfg.Paths.Contracts)
	}
	if _, ok := cfg.Networks["development"]; !ok {
		t.Error("default development network should still exist")
	}
}

func TestLoadConfigExplicitMissingFileFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("REDSPOT_NETWORK", "development")
	t.Setenv("REDSPOT_SURI", "//Charlie")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	accounts := cfg.Networks["development"].Accounts
	found := false
	for _, a := range accounts {
		if a == "//Charlie" {
			found = true
		}
	}
	if !found {
		t.Errorf("REDSPOT_SURI not merged into accounts: %v", accounts)
	}
}

func TestLoadSecretsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.env")
	content := "# comment\nREDSPOT_SURI=0xabc\n\nOTHER = value\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	secrets, err := LoadSecretsEnv(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if secrets["REDSPOT_SURI"] != "0xabc" {
		t.Errorf("unexpected secrets: %v", secrets)
	}
	if secrets["OTHER"] != "value" {
		t.Errorf("whitespace not trimmed: %v", secrets)
	}
}
