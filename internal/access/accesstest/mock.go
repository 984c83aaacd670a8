// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

// Package accesstest provides Policy test doubles.
package accesstest

import (
	"context"

	"github.com/McManning/stakeholder/internal/access"
)

// AbstainAll is a Policy with no opinion on anything.
type AbstainAll struct{}

// Name implements access.Policy.
func (AbstainAll) Name() string { return "abstain-all" }

// Check always abstains.
func (AbstainAll) Check(_ context.Context, _, _ string, _ *access.Resource) (access.Verdict, error) {
	return access.VerdictAbstain, nil
}

// AllowAll is a Policy that allows everything.
type AllowAll struct{}

// Name implements access.Policy.
func (AllowAll) Name() string { return "allow-all" }

// Check always allows.
func (AllowAll) Check(_ context.Context, _, _ string, _ *access.Resource) (access.Verdict, error) {
	return access.VerdictAllow, nil
}

// DenyAll is a Policy that denies everything.
type DenyAll struct{}

// Name implements access.Policy.
func (DenyAll) Name() string { return "deny-all" }

// Check always denies.
func (DenyAll) Check(_ context.Context, _, _ string, _ *access.Resource) (access.Verdict, error) {
	return access.VerdictDeny, nil
}

// Mock is a Policy driven by an injectable func, for asserting call order
// and arguments in chain tests.
type Mock struct {
	PolicyName string
	CheckFunc  func(ctx context.Context, action, username string, res *access.Resource) (access.Verdict, error)
	Calls      int
}

// Name returns PolicyName, or "mock" if unset.
func (m *Mock) Name() string {
	if m.PolicyName == "" {
		return "mock"
	}
	return m.PolicyName
}

// Check counts the call and delegates to CheckFunc. A Mock without a
// CheckFunc abstains.
func (m *Mock) Check(ctx context.Context, action, username string, res *access.Resource) (access.Verdict, error) {
	m.Calls++
	if m.CheckFunc == nil {
		return access.VerdictAbstain, nil
	}
	return m.CheckFunc(ctx, action, username, res)
}

// Verify interfaces are satisfied.
var (
	_ access.Policy = AbstainAll{}
	_ access.Policy = AllowAll{}
	_ access.Policy = DenyAll{}
	_ access.Policy = (*Mock)(nil)
)
