package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the stakeholder CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stakeholder",
		Short: "Stakeholder - group-scoped permission policy engine",
		Long: `Stakeholder evaluates glob-based permission rules over wiki pages,
tickets, and milestones, restricting each contributor group to the
resources its members hold a stake in.`,
	}

	// Global flags shared by every subcommand. Changed flags override
	// the corresponding config file keys.
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("rules", "", "rules file path")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "log format (json, text)")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}
