// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package policy

import "context"

// Grant is one (subject, action) row from the permission system. Subject is
// a username or group name. An action that is a lowercase word names a
// group the subject belongs to; anything else is an ordinary permission and
// carries no meaning here.
type Grant struct {
	Subject string
	Action  string
}

// GroupProvider supplies externally managed group memberships, such as a
// directory service or a static config map.
type GroupProvider interface {
	// Groups returns the groups username belongs to. An unknown username is
	// not an error; it simply has no groups.
	Groups(ctx context.Context, username string) ([]string, error)
}

// GrantSource lists every grant in the permission system.
type GrantSource interface {
	Grants(ctx context.Context) ([]Grant, error)
}

// TicketStore resolves the milestone a ticket is filed under.
type TicketStore interface {
	// Milestone returns the ticket's milestone. found is false when the
	// ticket does not exist; that is not an error. A ticket without a
	// milestone is found with an empty milestone.
	Milestone(ctx context.Context, id string) (milestone string, found bool, err error)
}

// StaticGroups is a fixed username-to-groups mapping. It serves deployments
// without a directory service and doubles as a test fixture.
type StaticGroups map[string][]string

// Groups implements GroupProvider.
func (s StaticGroups) Groups(_ context.Context, username string) ([]string, error) {
	return s[username], nil
}

var _ GroupProvider = StaticGroups{}
