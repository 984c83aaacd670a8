// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

// Package rules loads group access rules from a YAML document and serves
// them as immutable, pattern-compiled snapshots.
//
// A rules file is an ordered list of group entries; order is priority order
// for users belonging to more than one group:
//
//	groups:
//	  - group: irb
//	    realms:
//	      wiki: Projects/Buck-IRB*, Public*
//	      milestone:
//	        - Buck-IRB*
//	  - group: contractors
//	    realms:
//	      wiki: Public*
//
// Pattern lists may be written as YAML sequences or as a single
// comma-separated scalar; both normalize to []string.
package rules

import (
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/McManning/stakeholder/internal/access"
)

// RulesFile is the decoded form of a rules document.
//
//nolint:revive // rules.RulesFile stutters, but "File" alone reads as an os.File
type RulesFile struct {
	Groups []GroupRules `yaml:"groups" json:"groups,omitempty" jsonschema:"description=Group entries in priority order; the first group a user belongs to wins"`
}

// GroupRules maps one permission group to its per-realm glob patterns.
type GroupRules struct {
	Group  string                 `yaml:"group" json:"group" jsonschema:"minLength=1,description=Permission group name"`
	Realms map[string]PatternList `yaml:"realms,omitempty" json:"realms,omitempty" jsonschema:"description=Realm name to glob patterns"`
}

// PatternList is an ordered list of glob pattern strings. It decodes from
// either a YAML sequence or a single comma-separated scalar.
type PatternList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (pl *PatternList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*pl = splitPatterns(s)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*pl = items
		return nil
	default:
		return oops.Code("RULES_PARSE_FAILED").
			With("line", value.Line).
			Errorf("patterns must be a string or a sequence of strings")
	}
}

// JSONSchema describes both accepted YAML shapes for the generated schema.
func (PatternList) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Description: "Glob patterns, as a sequence or a comma-separated string",
	}
}

// splitPatterns turns a comma-separated scalar into a pattern list.
// A bare value without commas becomes a one-element list.
func splitPatterns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Parse decodes and validates a rules document. An empty document is valid
// and restricts nothing. Any syntax or schema failure is a configuration
// error: no partial rule set is ever returned.
func Parse(data []byte) (*RulesFile, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("RULES_PARSE_FAILED").Wrap(err)
	}
	if doc == nil {
		// Blank and comment-only documents restrict nothing.
		return &RulesFile{}, nil
	}

	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code("RULES_SCHEMA_INVALID").Wrap(err)
	}

	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, oops.Code("RULES_PARSE_FAILED").Wrap(err)
	}

	if err := rf.Validate(); err != nil {
		return nil, err
	}
	return &rf, nil
}

// knownRealms are the resource kinds the decision logic understands.
// A "ticket" key is accepted but inert: tickets are gated by the milestone
// patterns of their milestone, never by ticket-realm patterns.
var knownRealms = map[string]bool{
	access.RealmWiki:      true,
	access.RealmTicket:    true,
	access.RealmMilestone: true,
}

// Validate checks constraints the schema cannot express. Unknown realm keys
// and shadowed duplicate groups are operator mistakes worth a warning but
// load fine; only structural problems are errors.
func (rf *RulesFile) Validate() error {
	seen := make(map[string]int, len(rf.Groups))
	for i, g := range rf.Groups {
		if strings.TrimSpace(g.Group) == "" {
			return oops.Code("RULES_SCHEMA_INVALID").
				With("index", i).
				Errorf("group name must not be empty")
		}
		if first, dup := seen[g.Group]; dup {
			slog.Warn("duplicate group entry is shadowed by an earlier declaration",
				"group", g.Group,
				"first_index", first,
				"index", i)
		} else {
			seen[g.Group] = i
		}
		for realm := range g.Realms {
			if !knownRealms[realm] {
				slog.Warn("rules entry names an unrecognized realm",
					"group", g.Group,
					"realm", realm)
			}
		}
	}
	return nil
}
