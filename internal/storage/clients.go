// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/identity-provider/internal/types"
)

var _ ClientStorage = (*Storage)(nil)

const clientColumns = "id, tenant_id, name, secret, callbacks, allowed_logout_urls, web_origins, connections, created_at"

func (s *Storage) GetClient(ctx context.Context, tenantID, id string) (*types.Client, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetClient")
	defer span.End()

	row := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "secret", "callbacks", "allowed_logout_urls", "web_origins", "connections", "created_at").
		From("clients").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		QueryRowContext(ctx)

	c, err := scanClient(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return c, nil
}

func (s *Storage) ListClients(ctx context.Context, tenantID string) ([]*types.Client, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListClients")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "secret", "callbacks", "allowed_logout_urls", "web_origins", "connections", "created_at").
		From("clients").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("created_at").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*types.Client
	for rows.Next() {
		c, err := scanClient(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return clients, nil
}

func (s *Storage) CreateClient(ctx context.Context, tenantID string, client *types.Client) (*types.Client, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateClient")
	defer span.End()

	id := client.ID
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate client ID: %w", err)
		}
		id = generated.String()
	}

	callbacks, err := jsonb(client.Callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode callbacks: %w", err)
	}
	logoutURLs, err := jsonb(client.AllowedLogoutURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode allowed logout urls: %w", err)
	}
	origins, err := jsonb(client.WebOrigins)
	if err != nil {
		return nil, fmt.Errorf("failed to encode web origins: %w", err)
	}
	connections, err := jsonb(client.Connections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode connections: %w", err)
	}

	row := s.db.Statement(ctx).
		Insert("clients").
		Columns("id", "tenant_id", "name", "secret", "callbacks", "allowed_logout_urls", "web_origins", "connections").
		Values(id, tenantID, client.Name, client.Secret, callbacks, logoutURLs, origins, connections).
		Suffix("RETURNING " + clientColumns).
		QueryRowContext(ctx)

	created, err := scanClient(row.Scan)
	if err != nil {
		return nil, WrapDuplicateKeyError(err, "failed to insert client")
	}

	return created, nil
}

func (s *Storage) UpdateClient(ctx context.Context, tenantID, id string, client *types.Client) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateClient")
	defer span.End()

	callbacks, err := jsonb(client.Callbacks)
	if err != nil {
		return false, fmt.Errorf("failed to encode callbacks: %w", err)
	}
	logoutURLs, err := jsonb(client.AllowedLogoutURLs)
	if err != nil {
		return false, fmt.Errorf("failed to encode allowed logout urls: %w", err)
	}
	origins, err := jsonb(client.WebOrigins)
	if err != nil {
		return false, fmt.Errorf("failed to encode web origins: %w", err)
	}
	connections, err := jsonb(client.Connections)
	if err != nil {
		return false, fmt.Errorf("failed to encode connections: %w", err)
	}

	res, err := s.db.Statement(ctx).
		Update("clients").
		SetMap(map[string]interface{}{
			"name":                client.Name,
			"secret":              client.Secret,
			"callbacks":           callbacks,
			"allowed_logout_urls": logoutURLs,
			"web_origins":         origins,
			"connections":         connections,
		}).
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update client: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

func (s *Storage) RemoveClient(ctx context.Context, tenantID, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RemoveClient")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Delete("clients").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete client: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

func scanClient(scan func(dest ...interface{}) error) (*types.Client, error) {
	var c types.Client
	var callbacks, logoutURLs, origins, connections []byte

	if err := scan(&c.ID, &c.TenantID, &c.Name, &c.Secret, &callbacks, &logoutURLs, &origins, &connections, &c.CreatedAt); err != nil {
		return nil, err
	}

	if err := scanJSON(callbacks, &c.Callbacks); err != nil {
		return nil, err
	}
	if err := scanJSON(logoutURLs, &c.AllowedLogoutURLs); err != nil {
		return nil, err
	}
	if err := scanJSON(origins, &c.WebOrigins); err != nil {
		return nil, err
	}
	if err := scanJSON(connections, &c.Connections); err != nil {
		return nil, err
	}

	return &c, nil
}
