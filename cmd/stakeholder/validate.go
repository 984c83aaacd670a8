package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/McManning/stakeholder/internal/access/policy/rules"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a rules file without evaluating anything",
		Long: `Parse and schema-check a rules file, reporting the first problem
found. Without an argument the configured rules file is validated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		appCfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = appCfg.RulesPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return oops.In("rules").Code("RULES_READ_FAILED").
			With("source", path).
			Wrapf(err, "failed to read rules file")
	}

	rf, err := rules.Parse(data)
	if err != nil {
		return err
	}

	cmd.Printf("%s: OK (%d groups)\n", path, len(rf.Groups))
	return nil
}
