// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

// Package policy decides whether a user's access to a resource is denied
// outright or left to other policies. The engine resolves the user's
// permission groups, picks the first rules entry declaring one of them, and
// matches the resource against that entry's patterns for the realm: a match
// (or no applicable patterns) abstains, patterns that all miss deny. The
// engine never allows; granting is the host chain's business.
package policy

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/McManning/stakeholder/internal/access"
	"github.com/McManning/stakeholder/internal/access/policy/match"
	"github.com/McManning/stakeholder/internal/access/policy/rules"
)

var tracer = otel.Tracer("stakeholder/policy")

// Engine implements access.Policy over a rules Store, a group Resolver,
// and a TicketStore.
type Engine struct {
	rules   *rules.Store
	groups  *Resolver
	tickets TicketStore
}

// Compile-time check that Engine implements access.Policy.
var _ access.Policy = (*Engine)(nil)

// NewEngine creates an engine. tickets may be nil when no ticket storage is
// wired up; every ticket then counts as unknown and abstains.
func NewEngine(rulesStore *rules.Store, groups *Resolver, tickets TicketStore) *Engine {
	return &Engine{
		rules:   rulesStore,
		groups:  groups,
		tickets: tickets,
	}
}

// Name implements access.Policy.
func (e *Engine) Name() string { return "stakeholder" }

// Check decides action for username on res. The action is recorded in logs
// and traces but the verdict depends only on the user's groups and the
// resource. Wiki pages and milestones are matched directly; every other
// realm walks the parent chain to an enclosing ticket and is gated by that
// ticket's milestone. Rule loading or collaborator failures propagate and
// must stop the caller's chain.
func (e *Engine) Check(ctx context.Context, action, username string, res *access.Resource) (verdict access.Verdict, err error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "policy.check",
		trace.WithAttributes(
			attribute.String("access.action", action),
			attribute.String("access.username", username),
			attribute.String("access.resource", res.String()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("access.verdict", verdict.String()))
		}
		span.End()
	}()

	verdict, err = e.check(ctx, username, res)
	if err != nil {
		return access.VerdictAbstain, err
	}

	RecordCheckMetrics(realmLabel(res), verdict, time.Since(start))
	slog.DebugContext(ctx, "stakeholder check",
		"username", username,
		"action", action,
		"resource", res.String(),
		"verdict", verdict.String(),
	)
	return verdict, nil
}

func (e *Engine) check(ctx context.Context, username string, res *access.Resource) (access.Verdict, error) {
	snap, err := e.rules.Current(ctx)
	if err != nil {
		return access.VerdictAbstain, err
	}

	if res == nil || res.ID == "" {
		return access.VerdictAbstain, nil
	}

	switch res.Realm {
	case access.RealmWiki:
		return e.checkWiki(ctx, snap, username, res.ID)
	case access.RealmMilestone:
		return e.checkMilestone(ctx, snap, username, res.ID)
	default:
		ticket := res.EnclosingTicket()
		if ticket == nil || ticket.ID == "" {
			return access.VerdictAbstain, nil
		}
		return e.checkTicket(ctx, snap, username, ticket.ID)
	}
}

func (e *Engine) checkWiki(ctx context.Context, snap *rules.Snapshot, username, page string) (access.Verdict, error) {
	groups, err := e.groups.Resolve(ctx, username)
	if err != nil {
		return access.VerdictAbstain, err
	}
	return verdictFor(snap, groups, access.RealmWiki, page), nil
}

func (e *Engine) checkMilestone(ctx context.Context, snap *rules.Snapshot, username, milestone string) (access.Verdict, error) {
	groups, err := e.groups.Resolve(ctx, username)
	if err != nil {
		return access.VerdictAbstain, err
	}
	return verdictFor(snap, groups, access.RealmMilestone, milestone), nil
}

// checkTicket gates a ticket by the milestone it is filed under. A ticket
// without a milestone still runs the milestone check with an empty title.
func (e *Engine) checkTicket(ctx context.Context, snap *rules.Snapshot, username, id string) (access.Verdict, error) {
	if e.tickets == nil {
		return access.VerdictAbstain, nil
	}
	milestone, found, err := e.tickets.Milestone(ctx, id)
	if err != nil {
		return access.VerdictAbstain, err
	}
	if !found {
		slog.DebugContext(ctx, "ticket not found, abstaining", "ticket", id)
		return access.VerdictAbstain, nil
	}
	return e.checkMilestone(ctx, snap, username, milestone)
}

// verdictFor applies the realm patterns of the user's winning rules entry
// to value. No applicable patterns delegates; patterns that all miss deny.
func verdictFor(snap *rules.Snapshot, groups GroupSet, realm, value string) access.Verdict {
	patterns := snap.PatternsFor(groups, realm)
	if len(patterns) == 0 {
		return access.VerdictAbstain
	}
	if match.MatchesAny(value, patterns) {
		return access.VerdictAbstain
	}
	return access.VerdictDeny
}

// realmLabel maps a resource to a bounded metrics label value.
func realmLabel(res *access.Resource) string {
	if res == nil {
		return "none"
	}
	switch res.Realm {
	case access.RealmWiki, access.RealmTicket, access.RealmMilestone:
		return res.Realm
	default:
		return "other"
	}
}
