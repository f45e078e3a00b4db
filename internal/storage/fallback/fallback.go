// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package fallback layers control-plane settings inheritance over the storage
// adapters. Child tenants see their own settings merged on top of the
// control-plane tenant's defaults, so operators configure shared values once.
package fallback

import (
	"context"
	"errors"

	"dario.cat/mergo"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
)

// Config names the control-plane tenant holding the defaults and the client
// within it that child clients inherit from.
type Config struct {
	ControlPlaneTenantID string
	ControlPlaneClientID string
}

// Wrap replaces the tenant, client and connection adapters with inheriting
// versions. The remaining adapters pass through untouched. Without a
// control-plane tenant configured the set is returned as is.
func Wrap(a storage.Adapters, cfg Config, tracer tracing.TracingInterface, logger logging.LoggerInterface) storage.Adapters {
	if cfg.ControlPlaneTenantID == "" {
		return a
	}

	f := &inheritance{
		tenants:     a.Tenants,
		clients:     a.Clients,
		connections: a.Connections,
		cfg:         cfg,
		tracer:      tracer,
		logger:      logger,
	}

	wrapped := a
	wrapped.Tenants = &fallbackTenants{f}
	wrapped.Clients = &fallbackClients{f}
	wrapped.Connections = &fallbackConnections{f}

	return wrapped
}

type inheritance struct {
	tenants     storage.TenantStorage
	clients     storage.ClientStorage
	connections storage.ConnectionStorage

	cfg Config

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

// controlPlane reports whether the given tenant is the control-plane tenant
// itself, which never inherits.
func (f *inheritance) controlPlane(tenantID string) bool {
	return tenantID == f.cfg.ControlPlaneTenantID
}

type fallbackTenants struct {
	*inheritance
}

func (f *fallbackTenants) GetTenant(ctx context.Context, id string) (*types.Tenant, error) {
	ctx, span := f.tracer.Start(ctx, "fallback.Tenants.GetTenant")
	defer span.End()

	tenant, err := f.tenants.GetTenant(ctx, id)
	if err != nil || f.controlPlane(id) {
		return tenant, err
	}

	base, err := f.tenants.GetTenant(ctx, f.cfg.ControlPlaneTenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tenant, nil
		}
		return nil, err
	}

	if tenant.Audience == "" {
		tenant.Audience = base.Audience
	}
	if tenant.SenderEmail == "" {
		tenant.SenderEmail = base.SenderEmail
	}
	if tenant.SenderName == "" {
		tenant.SenderName = base.SenderName
	}

	return tenant, nil
}

func (f *fallbackTenants) ListTenants(ctx context.Context) ([]*types.Tenant, error) {
	return f.tenants.ListTenants(ctx)
}

type fallbackClients struct {
	*inheritance
}

func (f *fallbackClients) GetClient(ctx context.Context, tenantID, id string) (*types.Client, error) {
	ctx, span := f.tracer.Start(ctx, "fallback.Clients.GetClient")
	defer span.End()

	client, err := f.clients.GetClient(ctx, tenantID, id)
	if err != nil || f.controlPlane(tenantID) || f.cfg.ControlPlaneClientID == "" {
		return client, err
	}

	base, err := f.clients.GetClient(ctx, f.cfg.ControlPlaneTenantID, f.cfg.ControlPlaneClientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return client, nil
		}
		return nil, err
	}

	return mergeClient(client, base)
}

func (f *fallbackClients) ListClients(ctx context.Context, tenantID string) ([]*types.Client, error) {
	return f.clients.ListClients(ctx, tenantID)
}

func (f *fallbackClients) CreateClient(ctx context.Context, tenantID string, client *types.Client) (*types.Client, error) {
	return f.clients.CreateClient(ctx, tenantID, client)
}

func (f *fallbackClients) UpdateClient(ctx context.Context, tenantID, id string, client *types.Client) (bool, error) {
	return f.clients.UpdateClient(ctx, tenantID, id, client)
}

func (f *fallbackClients) RemoveClient(ctx context.Context, tenantID, id string) (bool, error) {
	return f.clients.RemoveClient(ctx, tenantID, id)
}

// mergeClient overlays the child's settings on the control-plane defaults.
// Scalar fields keep the child value when set, URL allow-lists concatenate
// with the control-plane entries first so inherited redirect targets stay
// valid alongside the child's own.
func mergeClient(child, base *types.Client) (*types.Client, error) {
	merged := *child

	defaults := *base
	defaults.ID = ""
	defaults.TenantID = ""
	defaults.Callbacks = nil
	defaults.AllowedLogoutURLs = nil
	defaults.WebOrigins = nil

	if err := mergo.Merge(&merged, defaults); err != nil {
		return nil, err
	}

	merged.Callbacks = concat(base.Callbacks, child.Callbacks)
	merged.AllowedLogoutURLs = concat(base.AllowedLogoutURLs, child.AllowedLogoutURLs)
	merged.WebOrigins = concat(base.WebOrigins, child.WebOrigins)

	return &merged, nil
}

// concat keeps every entry, duplicates included. Allow-list matching is
// positional, so a URL present on both sides must survive on both sides.
func concat(base, child []string) []string {
	if len(base) == 0 {
		return child
	}

	out := make([]string, 0, len(base)+len(child))
	out = append(out, base...)
	out = append(out, child...)

	return out
}

type fallbackConnections struct {
	*inheritance
}

func (f *fallbackConnections) GetConnection(ctx context.Context, tenantID, id string) (*types.Connection, error) {
	ctx, span := f.tracer.Start(ctx, "fallback.Connections.GetConnection")
	defer span.End()

	conn, err := f.connections.GetConnection(ctx, tenantID, id)
	if err != nil || f.controlPlane(tenantID) {
		return conn, err
	}

	base, err := f.baseConnection(ctx, conn.Name)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return conn, nil
	}

	return mergeConnection(conn, base)
}

func (f *fallbackConnections) ListConnections(ctx context.Context, tenantID string) ([]*types.Connection, error) {
	ctx, span := f.tracer.Start(ctx, "fallback.Connections.ListConnections")
	defer span.End()

	conns, err := f.connections.ListConnections(ctx, tenantID)
	if err != nil || f.controlPlane(tenantID) {
		return conns, err
	}

	bases, err := f.connections.ListConnections(ctx, f.cfg.ControlPlaneTenantID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*types.Connection, len(bases))
	for _, b := range bases {
		byName[b.Name] = b
	}

	merged := make([]*types.Connection, 0, len(conns))
	for _, c := range conns {
		base, ok := byName[c.Name]
		if !ok {
			merged = append(merged, c)
			continue
		}

		m, err := mergeConnection(c, base)
		if err != nil {
			return nil, err
		}
		merged = append(merged, m)
	}

	return merged, nil
}

// baseConnection finds the control-plane connection sharing the child's name.
// Connections are identified by name across tenants, so a nil result simply
// means nothing to inherit.
func (f *fallbackConnections) baseConnection(ctx context.Context, name string) (*types.Connection, error) {
	bases, err := f.connections.ListConnections(ctx, f.cfg.ControlPlaneTenantID)
	if err != nil {
		return nil, err
	}

	for _, b := range bases {
		if b.Name == name {
			return b, nil
		}
	}

	return nil, nil
}

// mergeConnection overlays the child connection on the control-plane base.
// Options merge key by key, the child wins and the base fills the gaps.
func mergeConnection(child, base *types.Connection) (*types.Connection, error) {
	merged := *child

	if merged.Strategy == "" {
		merged.Strategy = base.Strategy
	}

	options := make(map[string]interface{}, len(child.Options)+len(base.Options))
	for k, v := range child.Options {
		options[k] = v
	}
	if err := mergo.Merge(&options, base.Options); err != nil {
		return nil, err
	}
	merged.Options = options

	return &merged, nil
}
