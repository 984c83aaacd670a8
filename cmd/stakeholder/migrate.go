// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/McManning/stakeholder/internal/store"
)

// migrateConfig holds configuration for the migrate command.
type migrateConfig struct {
	down        bool
	showVersion bool
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cfg := &migrateConfig{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Run all pending database migrations against the PostgreSQL database.
With --down, roll back every applied migration instead. With --version,
report the current schema version without changing anything.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.down, "down", false, "roll back all applied migrations")
	cmd.Flags().BoolVar(&cfg.showVersion, "version", false, "report the current schema version and exit")

	return cmd
}

func runMigrate(cmd *cobra.Command, cfg *migrateConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	databaseURL, err := requireDatabaseURL(appCfg)
	if err != nil {
		return err
	}

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close() //nolint:errcheck // connection teardown on exit
	}()

	switch {
	case cfg.showVersion:
		return reportSchemaVersion(cmd, migrator)
	case cfg.down:
		cmd.Println("Rolling back all migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("Rollback completed successfully")
		return nil
	default:
		return applyPending(cmd, migrator)
	}
}

// applyPending lists the migrations about to run, then runs them.
func applyPending(cmd *cobra.Command, migrator *store.Migrator) error {
	pending, err := migrator.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}

	for _, v := range pending {
		cmd.Printf("Applying %s\n", describeMigration(v))
	}
	if err := migrator.Up(); err != nil {
		return err
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func reportSchemaVersion(cmd *cobra.Command, migrator *store.Migrator) error {
	v, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	if v == 0 {
		cmd.Println("Schema version: none (no migrations applied)")
		return nil
	}

	cmd.Printf("Schema version: %s\n", describeMigration(v))
	if dirty {
		cmd.Println("WARNING: schema is dirty, manual repair needed before further migrations")
	}
	return nil
}

// describeMigration renders a schema version with its migration name
// when the embedded sources know it.
func describeMigration(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", version)
	}
	return name
}
