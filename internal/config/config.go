// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

// Package config loads stakeholder configuration from YAML files and
// command-line flags.
package config

import (
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the full runtime configuration.
type Config struct {
	// RulesPath locates the rules file. A relative path from the config
	// file resolves against the config file's directory.
	RulesPath string `koanf:"rules_path"`

	// DatabaseURL is the PostgreSQL connection string. Empty runs the
	// engine without the permission and ticket stores.
	DatabaseURL string `koanf:"database_url"`

	Log LogConfig `koanf:"log"`

	// StaticGroups maps usernames to groups, unioned with database
	// memberships during resolution.
	StaticGroups map[string][]string `koanf:"static_groups"`
}

// LogConfig controls the default logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RulesPath: "stakeholder.yml",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here never reach the configuration.
var flagKeys = map[string]string{
	"rules":        "rules_path",
	"database-url": "database_url",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// Load builds the configuration from defaults, the YAML file at path when
// path is non-empty, and any changed flags, in that precedence order.
// Reading or parsing the file fails with CONFIG_READ_FAILED; values of the
// wrong shape fail with CONFIG_PARSE_FAILED.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.In("config").
				Code("CONFIG_READ_FAILED").
				With("path", path).
				Wrapf(err, "failed to load config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").
				Code("CONFIG_READ_FAILED").
				Wrapf(err, "failed to load flags")
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").
			Code("CONFIG_PARSE_FAILED").
			With("path", path).
			Wrapf(err, "failed to unmarshal config")
	}

	// A rules path from a flag stays relative to the working directory.
	rulesFromFlag := flags != nil && flags.Changed("rules")
	if path != "" && !rulesFromFlag && cfg.RulesPath != "" && !filepath.IsAbs(cfg.RulesPath) {
		cfg.RulesPath = filepath.Join(filepath.Dir(path), cfg.RulesPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.RulesPath == "" {
		return oops.In("config").
			Code("CONFIG_INVALID").
			Errorf("rules_path is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.In("config").
			Code("CONFIG_INVALID").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return oops.In("config").
			Code("CONFIG_INVALID").
			Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}
