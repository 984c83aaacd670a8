// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package store

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/McManning/stakeholder/internal/access/policy"
)

// PostgresTicketStore resolves ticket milestones from PostgreSQL.
type PostgresTicketStore struct {
	pool poolIface
}

var _ policy.TicketStore = (*PostgresTicketStore)(nil)

// NewPostgresTicketStore creates a ticket store backed by pool.
func NewPostgresTicketStore(pool poolIface) *PostgresTicketStore {
	return &PostgresTicketStore{pool: pool}
}

// Milestone returns the milestone of ticket id. Ticket ids are decimal
// strings; a non-numeric id names a ticket that cannot exist and reports
// not found. A NULL milestone reads as the empty string.
func (s *PostgresTicketStore) Milestone(ctx context.Context, id string) (string, bool, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		slog.DebugContext(ctx, "non-numeric ticket id", "ticket", id)
		return "", false, nil
	}

	var milestone string
	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(milestone, '') FROM ticket WHERE id = $1`, n).Scan(&milestone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.
			With("operation", "load ticket milestone").
			With("ticket", id).
			Wrap(err)
	}
	return milestone, true, nil
}
