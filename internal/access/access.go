// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

// Package access defines the permission-policy contract.
//
// A Policy inspects one permission check (action, username, resource) and
// returns a Verdict. Deny forbids the access outright, Allow grants it,
// and Abstain defers to the next policy in the host's chain. Restrictive
// policies such as the stakeholder engine only ever return Deny or Abstain;
// Allow exists for the chain protocol so permissive policies can short-circuit.
//
// Resources are named by realm and a realm-specific id:
//   - wiki: page path, e.g. "Projects/Buck-IRB/Issues"
//   - ticket: decimal ticket id, e.g. "42"
//   - milestone: milestone title, e.g. "Buck-IRB 1.8"
//
// Resources may carry a Parent link; realms outside the fixed set are
// resolved by walking the parent chain toward an enclosing ticket.
package access

import (
	"context"
	"fmt"
	"strings"
)

// Verdict is the outcome of a single policy consultation.
type Verdict int

// Verdict constants. The zero value is Abstain so an uninitialized verdict
// never grants or denies anything.
const (
	VerdictAbstain Verdict = iota // abstain
	VerdictAllow                  // allow
	VerdictDeny                   // deny
)

var verdictStrings = [...]string{
	"abstain",
	"allow",
	"deny",
}

func (v Verdict) String() string {
	if v >= 0 && int(v) < len(verdictStrings) {
		return verdictStrings[v]
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

// Decisive reports whether the verdict settles the check. A decisive verdict
// is terminal for the chain; Abstain lets the next policy decide.
func (v Verdict) Decisive() bool {
	return v == VerdictAllow || v == VerdictDeny
}

// Realm constants name the resource kinds with dedicated decision logic.
const (
	RealmWiki      = "wiki"
	RealmTicket    = "ticket"
	RealmMilestone = "milestone"
)

// Resource identifies the object of a permission check.
// ID is realm-specific: a wiki page path, a decimal ticket id, or a
// milestone title. An empty ID means the resource is unresolvable and every
// policy must abstain on it.
type Resource struct {
	Realm  string
	ID     string
	Parent *Resource
}

// EnclosingTicket returns the first resource in realm "ticket" found by
// walking r and then its parents, or nil when the chain has none. The walk
// starts at r itself, so a ticket resource returns itself.
func (r *Resource) EnclosingTicket() *Resource {
	for node := r; node != nil; node = node.Parent {
		if node.Realm == RealmTicket {
			return node
		}
	}
	return nil
}

func (r *Resource) String() string {
	if r == nil {
		return "<nil>"
	}
	return r.Realm + ":" + r.ID
}

// Policy decides permission checks.
type Policy interface {
	// Name identifies the policy in logs and chain configuration.
	Name() string

	// Check returns the policy's verdict for username performing action on
	// res. res may be nil (policies must abstain). A non-nil error means the
	// policy could not decide at all, typically a configuration or
	// collaborator failure, and must stop the chain rather than silently
	// grant or deny.
	Check(ctx context.Context, action, username string, res *Resource) (Verdict, error)
}

// ParseRef splits a "realm:id" resource reference.
// Returns ("", ref) if no colon separator is found.
func ParseRef(ref string) (realm, id string) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) == 1 {
		return "", ref
	}
	return parts[0], parts[1]
}
