// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cache

import (
	"context"

	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/types"
)

// WrapAdapters returns a copy of the adapter set with cache-aside decorators
// applied to the read-heavy entities. Adapters not selected by the policy, and
// the session-shaped entities whose freshness matters more than their read
// cost, pass through untouched.
func (p *Proxy) WrapAdapters(a storage.Adapters) storage.Adapters {
	wrapped := a

	if p.includes("tenants") {
		wrapped.Tenants = &cachedTenants{inner: a.Tenants, proxy: p}
	}
	if p.includes("customDomains") {
		wrapped.CustomDomains = &cachedCustomDomains{inner: a.CustomDomains, proxy: p}
	}
	if p.includes("clients") {
		wrapped.Clients = &cachedClients{inner: a.Clients, proxy: p}
	}
	if p.includes("connections") {
		wrapped.Connections = &cachedConnections{inner: a.Connections, proxy: p}
	}
	if p.includes("keys") {
		wrapped.Keys = &cachedKeys{inner: a.Keys, proxy: p}
	}

	return wrapped
}

type cachedTenants struct {
	inner storage.TenantStorage
	proxy *Proxy
}

func (c *cachedTenants) GetTenant(ctx context.Context, id string) (*types.Tenant, error) {
	return cachedRead(ctx, c.proxy, "tenants", "get", []string{id}, func(ctx context.Context) (*types.Tenant, error) {
		return c.inner.GetTenant(ctx, id)
	})
}

func (c *cachedTenants) ListTenants(ctx context.Context) ([]*types.Tenant, error) {
	return cachedRead(ctx, c.proxy, "tenants", "list", nil, func(ctx context.Context) ([]*types.Tenant, error) {
		return c.inner.ListTenants(ctx)
	})
}

type cachedCustomDomains struct {
	inner storage.CustomDomainStorage
	proxy *Proxy
}

func (c *cachedCustomDomains) GetCustomDomainByDomain(ctx context.Context, domain string) (*types.CustomDomain, error) {
	return cachedRead(ctx, c.proxy, "customDomains", "getByDomain", []string{domain}, func(ctx context.Context) (*types.CustomDomain, error) {
		return c.inner.GetCustomDomainByDomain(ctx, domain)
	})
}

type cachedClients struct {
	inner storage.ClientStorage
	proxy *Proxy
}

func (c *cachedClients) GetClient(ctx context.Context, tenantID, id string) (*types.Client, error) {
	return cachedRead(ctx, c.proxy, "clients", "get", []string{tenantID, id}, func(ctx context.Context) (*types.Client, error) {
		return c.inner.GetClient(ctx, tenantID, id)
	})
}

func (c *cachedClients) ListClients(ctx context.Context, tenantID string) ([]*types.Client, error) {
	return cachedRead(ctx, c.proxy, "clients", "list", []string{tenantID}, func(ctx context.Context) ([]*types.Client, error) {
		return c.inner.ListClients(ctx, tenantID)
	})
}

func (c *cachedClients) CreateClient(ctx context.Context, tenantID string, client *types.Client) (*types.Client, error) {
	return cachedWrite(ctx, c.proxy, "clients", tenantID, "", func(ctx context.Context) (*types.Client, error) {
		return c.inner.CreateClient(ctx, tenantID, client)
	})
}

func (c *cachedClients) UpdateClient(ctx context.Context, tenantID, id string, client *types.Client) (bool, error) {
	return cachedWrite(ctx, c.proxy, "clients", tenantID, id, func(ctx context.Context) (bool, error) {
		return c.inner.UpdateClient(ctx, tenantID, id, client)
	})
}

func (c *cachedClients) RemoveClient(ctx context.Context, tenantID, id string) (bool, error) {
	return cachedWrite(ctx, c.proxy, "clients", tenantID, id, func(ctx context.Context) (bool, error) {
		return c.inner.RemoveClient(ctx, tenantID, id)
	})
}

type cachedConnections struct {
	inner storage.ConnectionStorage
	proxy *Proxy
}

func (c *cachedConnections) GetConnection(ctx context.Context, tenantID, id string) (*types.Connection, error) {
	return cachedRead(ctx, c.proxy, "connections", "get", []string{tenantID, id}, func(ctx context.Context) (*types.Connection, error) {
		return c.inner.GetConnection(ctx, tenantID, id)
	})
}

func (c *cachedConnections) ListConnections(ctx context.Context, tenantID string) ([]*types.Connection, error) {
	return cachedRead(ctx, c.proxy, "connections", "list", []string{tenantID}, func(ctx context.Context) ([]*types.Connection, error) {
		return c.inner.ListConnections(ctx, tenantID)
	})
}

type cachedKeys struct {
	inner storage.KeyStorage
	proxy *Proxy
}

func (c *cachedKeys) ListSigningKeys(ctx context.Context, tenantID string) ([]*types.SigningKey, error) {
	return cachedRead(ctx, c.proxy, "keys", "list", []string{tenantID}, func(ctx context.Context) ([]*types.SigningKey, error) {
		return c.inner.ListSigningKeys(ctx, tenantID)
	})
}

func (c *cachedKeys) CreateSigningKey(ctx context.Context, key *types.SigningKey) (*types.SigningKey, error) {
	return cachedWrite(ctx, c.proxy, "keys", key.TenantID, key.Kid, func(ctx context.Context) (*types.SigningKey, error) {
		return c.inner.CreateSigningKey(ctx, key)
	})
}

func (c *cachedKeys) RevokeSigningKey(ctx context.Context, tenantID, kid string) (bool, error) {
	return cachedWrite(ctx, c.proxy, "keys", tenantID, kid, func(ctx context.Context) (bool, error) {
		return c.inner.RevokeSigningKey(ctx, tenantID, kid)
	})
}
