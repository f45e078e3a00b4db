// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/identity-provider/internal/types"
)

var _ KeyStorage = (*Storage)(nil)

func (s *Storage) ListSigningKeys(ctx context.Context, tenantID string) ([]*types.SigningKey, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListSigningKeys")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("kid", "tenant_id", "algorithm", "public_key", "private_key", "current", "revoked_at", "created_at").
		From("signing_keys").
		Where(sq.Eq{"tenant_id": tenantID, "revoked_at": nil}).
		OrderBy("created_at DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list signing keys: %w", err)
	}
	defer rows.Close()

	var keys []*types.SigningKey
	for rows.Next() {
		var k types.SigningKey
		if err := rows.Scan(&k.Kid, &k.TenantID, &k.Algorithm, &k.PublicKey, &k.PrivateKey, &k.Current, &k.RevokedAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signing key: %w", err)
		}
		keys = append(keys, &k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}

func (s *Storage) CreateSigningKey(ctx context.Context, key *types.SigningKey) (*types.SigningKey, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateSigningKey")
	defer span.End()

	if key.Current {
		// Exactly one key is current for new signatures per tenant.
		if _, err := s.db.Statement(ctx).
			Update("signing_keys").
			Set("current", false).
			Where(sq.Eq{"tenant_id": key.TenantID, "current": true}).
			ExecContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to demote current signing key: %w", err)
		}
	}

	var created types.SigningKey
	err := s.db.Statement(ctx).
		Insert("signing_keys").
		Columns("kid", "tenant_id", "algorithm", "public_key", "private_key", "current").
		Values(key.Kid, key.TenantID, key.Algorithm, key.PublicKey, key.PrivateKey, key.Current).
		Suffix("RETURNING kid, tenant_id, algorithm, public_key, private_key, current, revoked_at, created_at").
		QueryRowContext(ctx).
		Scan(&created.Kid, &created.TenantID, &created.Algorithm, &created.PublicKey, &created.PrivateKey, &created.Current, &created.RevokedAt, &created.CreatedAt)

	if err != nil {
		return nil, WrapDuplicateKeyError(err, "failed to insert signing key")
	}

	return &created, nil
}

func (s *Storage) RevokeSigningKey(ctx context.Context, tenantID, kid string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RevokeSigningKey")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("signing_keys").
		SetMap(map[string]interface{}{
			"revoked_at": time.Now().UTC(),
			"current":    false,
		}).
		Where(sq.Eq{"tenant_id": tenantID, "kid": kid, "revoked_at": nil}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to revoke signing key: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}
