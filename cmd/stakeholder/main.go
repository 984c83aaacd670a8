// Package main is the entry point for the stakeholder CLI.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// formatVersion renders the --version string.
func formatVersion(version, commit, date string) string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// run executes the root command and maps the outcome to an exit code.
// A deny under --fail-deny exits 2 so scripts can tell a denied check
// from an operational failure.
func run() int {
	cmd := NewRootCmd()
	cmd.Version = formatVersion(version, commit, date)

	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errDenied) {
			return 2
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
