// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/identity-provider/internal/types"
)

var _ ConnectionStorage = (*Storage)(nil)

func (s *Storage) GetConnection(ctx context.Context, tenantID, id string) (*types.Connection, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetConnection")
	defer span.End()

	var c types.Connection
	var options []byte
	err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "strategy", "options", "created_at").
		From("connections").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		QueryRowContext(ctx).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Strategy, &options, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	if err := scanJSON(options, &c.Options); err != nil {
		return nil, fmt.Errorf("failed to decode connection options: %w", err)
	}

	return &c, nil
}

func (s *Storage) ListConnections(ctx context.Context, tenantID string) ([]*types.Connection, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListConnections")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "strategy", "options", "created_at").
		From("connections").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("created_at").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []*types.Connection
	for rows.Next() {
		var c types.Connection
		var options []byte
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Strategy, &options, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		if err := scanJSON(options, &c.Options); err != nil {
			return nil, fmt.Errorf("failed to decode connection options: %w", err)
		}
		connections = append(connections, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return connections, nil
}
