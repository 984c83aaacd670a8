// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

// Command gen-schema generates the rules file JSON Schema.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/McManning/stakeholder/internal/access/policy/rules"
)

func main() {
	outPath := pflag.StringP("output", "o",
		filepath.Join("schemas", "stakeholder-rules.schema.json"),
		"path to write the generated schema to")
	pflag.Parse()

	schema, err := rules.GenerateSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, schema, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", *outPath)
}
