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

var _ TenantStorage = (*Storage)(nil)
var _ CustomDomainStorage = (*Storage)(nil)

func (s *Storage) GetTenant(ctx context.Context, id string) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetTenant")
	defer span.End()

	var t types.Tenant
	var flags []byte
	err := s.db.Statement(ctx).
		Select("id", "friendly_name", "audience", "sender_email", "sender_name", "flags", "created_at").
		From("tenants").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&t.ID, &t.FriendlyName, &t.Audience, &t.SenderEmail, &t.SenderName, &flags, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if err := scanJSON(flags, &t.Flags); err != nil {
		return nil, fmt.Errorf("failed to decode tenant flags: %w", err)
	}

	return &t, nil
}

func (s *Storage) ListTenants(ctx context.Context) ([]*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListTenants")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "friendly_name", "audience", "sender_email", "sender_name", "flags", "created_at").
		From("tenants").
		OrderBy("created_at").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*types.Tenant
	for rows.Next() {
		var t types.Tenant
		var flags []byte
		if err := rows.Scan(&t.ID, &t.FriendlyName, &t.Audience, &t.SenderEmail, &t.SenderName, &flags, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		if err := scanJSON(flags, &t.Flags); err != nil {
			return nil, fmt.Errorf("failed to decode tenant flags: %w", err)
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tenants, nil
}

func (s *Storage) GetCustomDomainByDomain(ctx context.Context, domain string) (*types.CustomDomain, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetCustomDomainByDomain")
	defer span.End()

	var d types.CustomDomain
	err := s.db.Statement(ctx).
		Select("id", "tenant_id", "domain", "verified", "created_at").
		From("custom_domains").
		Where(sq.Eq{"domain": domain}).
		QueryRowContext(ctx).
		Scan(&d.ID, &d.TenantID, &d.Domain, &d.Verified, &d.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get custom domain: %w", err)
	}

	return &d, nil
}
