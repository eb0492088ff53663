package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearenv unsets a variable for the test, restoring it afterwards.
func clearenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func resetEnv(t *testing.T) {
	t.Helper()
	clearenv(t, "CARGO")
	clearenv(t, NoRunNightlyVar)
	clearenv(t, "RUSTFMT")
	clearenv(t, "PYGMENTIZE")
}

func TestFromEnvDefaults(t *testing.T) {
	resetEnv(t)
	cfg := FromEnv([]string{"cargo-expand", "expand"})
	if cfg.Cargo != DefaultCargo {
		t.Errorf("Cargo = %q, want %q", cfg.Cargo, DefaultCargo)
	}
	if cfg.NoRunNightly {
		t.Error("NoRunNightly = true with guard unset")
	}
	if cfg.Help {
		t.Error("Help = true without --help")
	}
	if _, ok := cfg.Override("rustfmt"); ok {
		t.Error("unexpected rustfmt override")
	}
}

func TestFromEnv(t *testing.T) {
	resetEnv(t)
	t.Setenv("CARGO", "/opt/cargo")
	t.Setenv(NoRunNightlyVar, "") // presence counts, even empty
	t.Setenv("RUSTFMT", "")       // empty override: force absent
	t.Setenv("PYGMENTIZE", "/usr/bin/pygmentize")

	cfg := FromEnv([]string{"cargo-expand", "expand", "--help"})

	if cfg.Cargo != "/opt/cargo" {
		t.Errorf("Cargo = %q, want /opt/cargo", cfg.Cargo)
	}
	if !cfg.NoRunNightly {
		t.Error("NoRunNightly = false with guard set")
	}
	if !cfg.Help {
		t.Error("Help = false with --help present")
	}
	if v, ok := cfg.Override("rustfmt"); !ok || v != "" {
		t.Errorf("rustfmt override = (%q, %v), want present and empty", v, ok)
	}
	if v, ok := cfg.Override("pygmentize"); !ok || v != "/usr/bin/pygmentize" {
		t.Errorf("pygmentize override = (%q, %v)", v, ok)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	resetEnv(t)
	path := writeConfig(t, `
cargo: /opt/file-cargo
no_run_nightly: true
tools:
  rustfmt: /opt/file-rustfmt
`)
	cfg, err := LoadFrom(path, []string{"cargo-expand", "expand"})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Cargo != "/opt/file-cargo" {
		t.Errorf("Cargo = %q, want /opt/file-cargo", cfg.Cargo)
	}
	if !cfg.NoRunNightly {
		t.Error("NoRunNightly = false, want true from file")
	}
	if v, ok := cfg.Override("rustfmt"); !ok || v != "/opt/file-rustfmt" {
		t.Errorf("rustfmt override = (%q, %v)", v, ok)
	}
}

func TestLoadFromEnvWins(t *testing.T) {
	resetEnv(t)
	t.Setenv("CARGO", "/opt/env-cargo")
	t.Setenv("RUSTFMT", "/opt/env-rustfmt")

	path := writeConfig(t, `
cargo: /opt/file-cargo
tools:
  rustfmt: /opt/file-rustfmt
  pygmentize: /opt/file-pygmentize
`)
	cfg, err := LoadFrom(path, []string{"cargo-expand", "expand"})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Cargo != "/opt/env-cargo" {
		t.Errorf("Cargo = %q, env must win", cfg.Cargo)
	}
	if v, _ := cfg.Override("rustfmt"); v != "/opt/env-rustfmt" {
		t.Errorf("rustfmt override = %q, env must win", v)
	}
	// File still fills tools the environment says nothing about.
	if v, ok := cfg.Override("pygmentize"); !ok || v != "/opt/file-pygmentize" {
		t.Errorf("pygmentize override = (%q, %v), want file value", v, ok)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	resetEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"), []string{"cargo-expand", "expand"})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Cargo != DefaultCargo {
		t.Errorf("Cargo = %q, want default", cfg.Cargo)
	}
}

func TestLoadFromBadYAML(t *testing.T) {
	resetEnv(t)
	path := writeConfig(t, "tools: [not a map")
	if _, err := LoadFrom(path, nil); err == nil {
		t.Error("LoadFrom succeeded on malformed config")
	}
}
