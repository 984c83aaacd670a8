// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// SeedResult reports what Seed inserted and what already existed.
type SeedResult struct {
	Inserted int
	Skipped  int
}

type seedRow struct {
	sql  string
	args []any
}

// seedRows is a small demo fixture matching the sample rules file:
// IRB members, a contractor, a nested staff grant, and a few tickets.
var seedRows = []seedRow{
	{`INSERT INTO user_group (username, group_name) VALUES ($1, $2)`, []any{"mcmanning", "irb"}},
	{`INSERT INTO user_group (username, group_name) VALUES ($1, $2)`, []any{"dietrich", "contractors"}},
	{`INSERT INTO permission (username, action) VALUES ($1, $2)`, []any{"chen", "irb"}},
	{`INSERT INTO permission (username, action) VALUES ($1, $2)`, []any{"irb", "staff"}},
	{`INSERT INTO permission (username, action) VALUES ($1, $2)`, []any{"staff", "WIKI_VIEW"}},
	{`INSERT INTO ticket (id, milestone) VALUES ($1, $2)`, []any{int64(7), "Buck-IRB 1.8"}},
	{`INSERT INTO ticket (id, milestone) VALUES ($1, $2)`, []any{int64(8), "COI Review"}},
	{`INSERT INTO ticket (id, milestone) VALUES ($1, $2)`, []any{int64(9), nil}},
}

// Seed inserts the demo fixture. Rows that already exist are skipped, so
// running it repeatedly is safe.
func Seed(ctx context.Context, pool poolIface) (SeedResult, error) {
	var result SeedResult
	for _, row := range seedRows {
		if _, err := pool.Exec(ctx, row.sql, row.args...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				result.Skipped++
				continue
			}
			return result, oops.Code("SEED_FAILED").
				With("operation", "insert seed row").
				Wrap(err)
		}
		result.Inserted++
	}
	slog.InfoContext(ctx, "seed complete",
		"inserted", result.Inserted,
		"skipped", result.Skipped)
	return result, nil
}
