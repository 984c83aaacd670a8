package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/McManning/stakeholder/internal/config"
	"github.com/McManning/stakeholder/internal/xdg"
)

// resolveConfigFile picks the config file for this invocation: the
// --config flag when given, otherwise config.yml under the XDG config
// directory when one exists. Empty means built-in defaults.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}

	dir, err := xdg.ConfigDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(dir, "config.yml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// loadConfig loads configuration for a subcommand. Changed flags win
// over the config file, and an empty database URL falls back to the
// DATABASE_URL environment variable.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// requireDatabaseURL returns the configured database URL, or an error
// for commands that cannot run without one.
func requireDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("database URL is required: set database_url, pass --database-url, or export DATABASE_URL")
	}
	return cfg.DatabaseURL, nil
}
