package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hychen/redspot/internal/chain"
)

// Config is the project configuration merged from defaults, the YAML
// file, secrets.env and environment variables, in that order.
type Config struct {
	DefaultNetwork string                         `yaml:"default_network"`
	Networks       map[string]chain.NetworkConfig `yaml:"networks"`
	Paths          PathsConfig                    `yaml:"paths"`
	Compiler       CompilerConfig                 `yaml:"compiler"`
}

type PathsConfig struct {
	Artifacts string `yaml:"artifacts"`
	Contracts string `yaml:"contracts"`
	Plugins   string `yaml:"plugins"`
	History   string `yaml:"history"`
}

type CompilerConfig struct {
	Command    string            `yaml:"command"`
	MinVersion string            `yaml:"min_version"`
	Options    map[string]string `yaml:"options"`
}

// LoadConfig reads YAML configuration from a path. If path is empty, it
// resolves ./redspot.yaml, then $XDG_CONFIG_HOME/redspot/config.yaml or
// ~/.config/redspot/config.yaml; a missing file falls back to defaults.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		if _, err := os.Stat("redspot.yaml"); err == nil {
			path = "redspot.yaml"
		} else {
			path = filepath.Join(configDir(), "config.yaml")
		}
	}

	cfg := defaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if explicit {
			return nil, fmt.Errorf("open config: %w", err)
		}
		mergeOverrides(cfg)
		return cfg, nil
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	mergeOverrides(cfg)
	return cfg, nil
}

func configDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "redspot")
}

func defaultConfig() *Config {
	cfg := &Config{Networks: map[string]chain.NetworkConfig{}}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DefaultNetwork == "" {
		cfg.DefaultNetwork = "development"
	}
	if cfg.Networks == nil {
		cfg.Networks = map[string]chain.NetworkConfig{}
	}
	if _, ok := cfg.Networks["development"]; !ok {
		cfg.Networks["development"] = chain.NetworkConfig{
			Endpoint: "http://127.0.0.1:9933",
			Accounts: []string{"//Alice"},
			GasLimit: 50000000000,
		}
	}
	if cfg.Paths.Artifacts == "" {
		cfg.Paths.Artifacts = "artifacts"
	}
	if cfg.Paths.Contracts == "" {
		cfg.Paths.Contracts = "contracts"
	}
	if cfg.Paths.Plugins == "" {
		cfg.Paths.Plugins = "plugins"
	}
	if cfg.Paths.History == "" {
		cfg.Paths.History = filepath.Join(".redspot", "history.db")
	}
	if cfg.Compiler.Command == "" {
		cfg.Compiler.Command = "cargo-contract"
	}
}

// mergeOverrides applies secrets.env and environment variables on top of
// the file-sourced configuration.
func mergeOverrides(cfg *Config) {
	secrets, _ := LoadSecretsEnv("")
	if v := os.Getenv("REDSPOT_NETWORK"); v != "" {
		secrets["REDSPOT_NETWORK"] = v
	}
	if v := os.Getenv("REDSPOT_SURI"); v != "" {
		secrets["REDSPOT_SURI"] = v
	}

	if n, ok := secrets["REDSPOT_NETWORK"]; ok && n != "" {
		cfg.DefaultNetwork = n
	}
	if suri, ok := secrets["REDSPOT_SURI"]; ok && suri != "" {
		net := cfg.Networks[cfg.DefaultNetwork]
		net.Accounts = append(net.Accounts, suri)
		cfg.Networks[cfg.DefaultNetwork] = net
	}
}
