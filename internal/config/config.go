// Package config resolves Relay's configuration once, at process startup.
//
// Everything ambient — environment variables, the config file, defaults —
// is folded into a single Config value here. Deeper components (gateway,
// workflow, store) receive explicit values and never read the environment
// themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BackendConfig describes how to reach one external MCP backend.
// Exactly one of URL (streamable HTTP) or Command (stdio subprocess)
// is used; URL wins when both are set.
type BackendConfig struct {
	// Disabled makes every invocation of this backend return a synthetic
	// error result without attempting a connection.
	Disabled bool `yaml:"disabled"`
	// URL of an already-running MCP server (streamable HTTP transport).
	URL string `yaml:"url"`
	// Command and Args spawn a local MCP server speaking stdio.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// Env entries ("KEY=value") passed to the spawned subprocess.
	Env []string `yaml:"env"`
}

// Config is the fully resolved Relay configuration.
type Config struct {
	// DeveloperID identifies the local developer in sessions and handoffs.
	DeveloperID string `yaml:"developer_id"`
	// Project is the code-host project (ID or path) used to locate
	// merge requests. Empty disables MR discovery.
	Project string `yaml:"project"`
	// WorkspacePath is the local repository root (git fallback, branch info).
	WorkspacePath string `yaml:"workspace_path"`
	// DatabasePath is the SQLite file backing the work tracker.
	DatabasePath string `yaml:"database_path"`
	// LocalStore bypasses the store MCP backend and opens DatabasePath
	// directly with the embedded SQLite driver.
	LocalStore bool `yaml:"local_store"`

	Issues   BackendConfig `yaml:"issues"`
	CodeHost BackendConfig `yaml:"codehost"`
	Store    BackendConfig `yaml:"store"`
}

// DefaultPath returns the default config file location (~/.relay/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".relay", "config.yaml")
	}
	return filepath.Join(home, ".relay", "config.yaml")
}

// Load reads the config file at path (missing file is not an error),
// applies environment overrides, and fills defaults.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// applyEnv overlays RELAY_* environment variables on top of file values.
// Environment wins over the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("RELAY_DEVELOPER_ID"); v != "" {
		cfg.DeveloperID = v
	}
	if v := os.Getenv("RELAY_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("RELAY_WORKSPACE"); v != "" {
		cfg.WorkspacePath = v
	}
	if v := os.Getenv("RELAY_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if os.Getenv("RELAY_LOCAL_STORE") == "1" {
		cfg.LocalStore = true
	}

	applyBackendEnv(&cfg.Issues, "RELAY_ISSUES")
	applyBackendEnv(&cfg.CodeHost, "RELAY_CODEHOST")
	applyBackendEnv(&cfg.Store, "RELAY_STORE")
}

func applyBackendEnv(b *BackendConfig, prefix string) {
	if os.Getenv(prefix+"_DISABLED") == "1" {
		b.Disabled = true
	}
	if v := os.Getenv(prefix + "_URL"); v != "" {
		b.URL = v
	}
	if v := os.Getenv(prefix + "_COMMAND"); v != "" {
		b.Command = v
	}
	if v := os.Getenv(prefix + "_ARGS"); v != "" {
		b.Args = splitArgs(v)
	}
}

// splitArgs parses a comma-separated argument list from an env var.
func splitArgs(raw string) []string {
	parts := strings.Split(raw, ",")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			args = append(args, p)
		}
	}
	return args
}

func applyDefaults(cfg *Config) {
	if cfg.DeveloperID == "" {
		if u := os.Getenv("USER"); u != "" {
			cfg.DeveloperID = u
		} else {
			cfg.DeveloperID = "default"
		}
	}
	if cfg.WorkspacePath == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkspacePath = wd
		} else {
			cfg.WorkspacePath = "."
		}
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(filepath.Dir(DefaultPath()), "work-tracker.db")
	}
}
