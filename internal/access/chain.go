// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package access

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Chain consults policies in declared order and returns the first decisive
// verdict. If every policy abstains, the chain abstains and the host's own
// default applies. Chain is itself a Policy, so chains compose.
type Chain struct {
	policies []Policy
}

// NewChain creates a Chain over the given policies. Order is priority order.
func NewChain(policies ...Policy) *Chain {
	return &Chain{policies: policies}
}

// Name implements Policy.
func (c *Chain) Name() string { return "chain" }

// Check runs the chain. The first Allow or Deny wins and no later policy is
// consulted. An error from any policy stops the chain: a policy that cannot
// decide must not be skipped over, or a Deny it would have issued could be
// lost.
func (c *Chain) Check(ctx context.Context, action, username string, res *Resource) (Verdict, error) {
	for _, p := range c.policies {
		v, err := p.Check(ctx, action, username, res)
		if err != nil {
			return VerdictAbstain, oops.With("policy", p.Name()).Wrap(err)
		}
		if v.Decisive() {
			slog.DebugContext(ctx, "policy decided check",
				"policy", p.Name(),
				"verdict", v.String(),
				"username", username,
				"resource", res.String(),
			)
			return v, nil
		}
	}
	return VerdictAbstain, nil
}

var _ Policy = (*Chain)(nil)
