// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/McManning/stakeholder/internal/access/policy"
)

// PostgresPermissionStore reads permission grants and group memberships
// from PostgreSQL.
type PostgresPermissionStore struct {
	pool poolIface
}

var (
	_ policy.GrantSource   = (*PostgresPermissionStore)(nil)
	_ policy.GroupProvider = (*PostgresPermissionStore)(nil)
)

// NewPostgresPermissionStore creates a permission store backed by pool.
func NewPostgresPermissionStore(pool poolIface) *PostgresPermissionStore {
	return &PostgresPermissionStore{pool: pool}
}

// Grants returns every (subject, action) pair in the permission table.
func (s *PostgresPermissionStore) Grants(ctx context.Context) ([]policy.Grant, error) {
	rows, err := s.pool.Query(ctx, `SELECT username, action FROM permission`)
	if err != nil {
		return nil, oops.
			With("operation", "list permission grants").
			Wrap(err)
	}
	defer rows.Close()

	var grants []policy.Grant
	for rows.Next() {
		var g policy.Grant
		if err := rows.Scan(&g.Subject, &g.Action); err != nil {
			return nil, oops.
				With("operation", "scan permission row").
				Wrap(err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.
			With("operation", "iterate permission grants").
			Wrap(err)
	}
	return grants, nil
}

// Groups returns the directory groups username belongs to. An unknown
// username yields no groups, not an error.
func (s *PostgresPermissionStore) Groups(ctx context.Context, username string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT group_name FROM user_group WHERE username = $1`, username)
	if err != nil {
		return nil, oops.
			With("operation", "list user groups").
			With("username", username).
			Wrap(err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			return nil, oops.
				With("operation", "scan user group row").
				With("username", username).
				Wrap(err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.
			With("operation", "iterate user groups").
			With("username", username).
			Wrap(err)
	}
	return groups, nil
}
