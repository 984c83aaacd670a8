// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package policy

import (
	"context"
	"unicode"

	"github.com/samber/oops"
)

// GroupSet is the set of permission groups a user belongs to. The username
// itself is always a member, so rules entries can target individual users.
type GroupSet map[string]struct{}

// Contains reports whether name is in the set.
func (s GroupSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Resolver computes the full group membership of a user from external
// group providers and the permission-grant graph.
type Resolver struct {
	grants    GrantSource
	providers []GroupProvider
}

// NewResolver creates a Resolver. grants may be nil when no permission
// system exists; providers may be empty.
func NewResolver(grants GrantSource, providers ...GroupProvider) *Resolver {
	return &Resolver{grants: grants, providers: providers}
}

// Resolve returns every group username belongs to: the username itself,
// whatever the providers report, and the transitive closure over grants
// whose action is a lowercase word (such a grant reads "subject is a member
// of group action", so groups nest). Collaborator failures propagate.
func (r *Resolver) Resolve(ctx context.Context, username string) (GroupSet, error) {
	set := GroupSet{username: {}}

	for _, p := range r.providers {
		groups, err := p.Groups(ctx, username)
		if err != nil {
			return nil, oops.In("policy").
				With("username", username).
				Wrapf(err, "group provider failed")
		}
		for _, g := range groups {
			set[g] = struct{}{}
		}
	}

	if r.grants == nil {
		return set, nil
	}
	grants, err := r.grants.Grants(ctx)
	if err != nil {
		return nil, oops.In("policy").Wrapf(err, "grant source failed")
	}

	// Fixpoint over the grant graph. Every pass either grows the set or
	// stops, so len(grants)+1 passes always suffice; the bound keeps a
	// pathological grant table from spinning.
	for pass := 0; pass <= len(grants); pass++ {
		grew := false
		for _, g := range grants {
			if !isGroupName(g.Action) || !set.Contains(g.Subject) || set.Contains(g.Action) {
				continue
			}
			set[g.Action] = struct{}{}
			grew = true
		}
		if !grew {
			break
		}
	}
	return set, nil
}

// isGroupName reports whether a grant action names a group rather than a
// permission. Groups are lowercase words (devs, dev_team); permission
// actions are uppercase (TICKET_VIEW). The test requires at least one cased
// rune and no upper- or title-case ones, so "42" is not a group either.
func isGroupName(action string) bool {
	cased := false
	for _, r := range action {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}
