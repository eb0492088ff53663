// Package config resolves the program's configuration from the environment
// and an optional config file. Everything is read exactly once at startup and
// threaded explicitly; no other package touches the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NoRunNightlyVar is the re-exec guard variable. Its presence (any value,
// empty included) forces an in-process run and prevents a second-level
// toolchain re-exec.
const NoRunNightlyVar = "CARGO_EXPAND_NO_RUN_NIGHTLY"

// DefaultCargo is the build-tool binary used when neither the CARGO
// variable nor the config file names one.
const DefaultCargo = "cargo"

// knownTools are the optional post-processors whose resolved paths may be
// overridden via an environment variable named after the tool, uppercased.
var knownTools = []string{"rustfmt", "pygmentize"}

// Config holds everything the probers and the orchestrator need to know
// about the invocation environment.
type Config struct {
	// Cargo is the build-tool binary to invoke.
	Cargo string

	// NoRunNightly suppresses the nightly re-exec. Doubles as the
	// loop-prevention marker set on a re-exec child.
	NoRunNightly bool

	// Overrides maps a tool name to its forced resolution. A present
	// entry with an empty value means "force absent"; a non-empty value
	// is used verbatim without probing. Absent entries mean "probe".
	Overrides map[string]string

	// Help is set when the user arguments contain --help. Probing is
	// suppressed so that printing help has no side effects.
	Help bool
}

// Override reports the forced resolution for a tool, if any.
func (c *Config) Override(tool string) (string, bool) {
	v, ok := c.Overrides[tool]
	return v, ok
}

// fileConfig is the on-disk shape of ~/.config/cargo-expand/config.yaml.
type fileConfig struct {
	Cargo        string            `yaml:"cargo"`
	NoRunNightly bool              `yaml:"no_run_nightly"`
	Tools        map[string]string `yaml:"tools"`
}

// Load resolves the configuration from the standard config file location
// layered under the environment. The environment always wins.
func Load(args []string) (*Config, error) {
	path := ""
	if home, err := os.UserHomeDir(); err == nil {
		path = filepath.Join(home, ".config", "cargo-expand", "config.yaml")
	}
	return LoadFrom(path, args)
}

// LoadFrom is Load with an explicit file path. A missing or empty path
// yields the environment-only configuration.
func LoadFrom(path string, args []string) (*Config, error) {
	cfg := FromEnv(args)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Cargo == DefaultCargo && fc.Cargo != "" {
		cfg.Cargo = fc.Cargo
	}
	if fc.NoRunNightly {
		cfg.NoRunNightly = true
	}
	for tool, p := range fc.Tools {
		if _, ok := cfg.Overrides[tool]; !ok {
			cfg.Overrides[tool] = p
		}
	}

	return cfg, nil
}

// FromEnv builds the configuration from the environment alone. args are the
// user-supplied arguments (program name and subcommand already stripped).
func FromEnv(args []string) *Config {
	cfg := &Config{
		Cargo:     DefaultCargo,
		Overrides: make(map[string]string),
	}

	if cargo := os.Getenv("CARGO"); cargo != "" {
		cfg.Cargo = cargo
	}
	if _, ok := os.LookupEnv(NoRunNightlyVar); ok {
		cfg.NoRunNightly = true
	}
	for _, tool := range knownTools {
		if v, ok := os.LookupEnv(strings.ToUpper(tool)); ok {
			cfg.Overrides[tool] = v
		}
	}
	for _, arg := range args {
		if arg == "--help" {
			cfg.Help = true
			break
		}
	}

	return cfg
}
