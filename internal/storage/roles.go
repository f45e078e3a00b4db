// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/identity-provider/internal/types"
)

var _ RoleStorage = (*Storage)(nil)

func (s *Storage) GetRole(ctx context.Context, tenantID, id string) (*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetRole")
	defer span.End()

	var r types.Role
	var permissions []byte
	err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "description", "permissions", "created_at").
		From("roles").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		QueryRowContext(ctx).
		Scan(&r.ID, &r.TenantID, &r.Name, &r.Description, &permissions, &r.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if err := scanJSON(permissions, &r.Permissions); err != nil {
		return nil, fmt.Errorf("failed to decode role permissions: %w", err)
	}

	return &r, nil
}

func (s *Storage) AssignRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.AssignRolePermissions")
	defer span.End()

	role, err := s.GetRole(ctx, tenantID, id)
	if err != nil {
		return err
	}

	merged := role.Permissions
	for _, p := range permissions {
		if !slices.Contains(merged, p) {
			merged = append(merged, p)
		}
	}

	return s.setRolePermissions(ctx, tenantID, id, merged)
}

func (s *Storage) RemoveRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.RemoveRolePermissions")
	defer span.End()

	role, err := s.GetRole(ctx, tenantID, id)
	if err != nil {
		return err
	}

	remaining := slices.DeleteFunc(role.Permissions, func(p string) bool {
		return slices.Contains(permissions, p)
	})

	return s.setRolePermissions(ctx, tenantID, id, remaining)
}

func (s *Storage) setRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error {
	encoded, err := jsonb(permissions)
	if err != nil {
		return fmt.Errorf("failed to encode role permissions: %w", err)
	}

	_, err = s.db.Statement(ctx).
		Update("roles").
		Set("permissions", encoded).
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update role permissions: %w", err)
	}

	return nil
}
