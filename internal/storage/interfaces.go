// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"

	"github.com/canonical/identity-provider/internal/types"
)

// Scope restricts listing operations to one tenant and/or one user. The zero
// value matches everything.
type Scope struct {
	TenantID string
	UserID   string
}

type TenantStorage interface {
	GetTenant(ctx context.Context, id string) (*types.Tenant, error)
	ListTenants(ctx context.Context) ([]*types.Tenant, error)
}

type CustomDomainStorage interface {
	GetCustomDomainByDomain(ctx context.Context, domain string) (*types.CustomDomain, error)
}

type ClientStorage interface {
	GetClient(ctx context.Context, tenantID, id string) (*types.Client, error)
	ListClients(ctx context.Context, tenantID string) ([]*types.Client, error)
	CreateClient(ctx context.Context, tenantID string, client *types.Client) (*types.Client, error)
	UpdateClient(ctx context.Context, tenantID, id string, client *types.Client) (bool, error)
	RemoveClient(ctx context.Context, tenantID, id string) (bool, error)
}

type ConnectionStorage interface {
	GetConnection(ctx context.Context, tenantID, id string) (*types.Connection, error)
	ListConnections(ctx context.Context, tenantID string) ([]*types.Connection, error)
}

type KeyStorage interface {
	// ListSigningKeys returns the unrevoked signing keys for the tenant.
	ListSigningKeys(ctx context.Context, tenantID string) ([]*types.SigningKey, error)
	// CreateSigningKey persists a new key; when key.Current is set, any
	// previously current key for the tenant is demoted.
	CreateSigningKey(ctx context.Context, key *types.SigningKey) (*types.SigningKey, error)
	RevokeSigningKey(ctx context.Context, tenantID, kid string) (bool, error)
}

type LoginSessionStorage interface {
	GetLoginSession(ctx context.Context, tenantID, id string) (*types.LoginSession, error)
	ListLoginSessions(ctx context.Context, scope Scope) ([]*types.LoginSession, error)
	CreateLoginSession(ctx context.Context, login *types.LoginSession) (*types.LoginSession, error)
	UpdateLoginSession(ctx context.Context, tenantID, id string, login *types.LoginSession) (bool, error)
	RemoveLoginSession(ctx context.Context, tenantID, id string) (bool, error)
}

type SessionStorage interface {
	GetSession(ctx context.Context, tenantID, id string) (*types.Session, error)
	ListSessions(ctx context.Context, scope Scope) ([]*types.Session, error)
	CreateSession(ctx context.Context, session *types.Session) (*types.Session, error)
	UpdateSession(ctx context.Context, tenantID, id string, session *types.Session) (bool, error)
	SetSessionUsed(ctx context.Context, tenantID, id string) (bool, error)
	RemoveSession(ctx context.Context, tenantID, id string) (bool, error)
}

type RefreshTokenStorage interface {
	GetRefreshToken(ctx context.Context, tenantID, id string) (*types.RefreshToken, error)
	ListRefreshTokens(ctx context.Context, scope Scope) ([]*types.RefreshToken, error)
	CreateRefreshToken(ctx context.Context, token *types.RefreshToken) (*types.RefreshToken, error)
	RemoveRefreshToken(ctx context.Context, tenantID, id string) (bool, error)
}

type RoleStorage interface {
	GetRole(ctx context.Context, tenantID, id string) (*types.Role, error)
	AssignRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error
	RemoveRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error
}

// Adapters bundles the storage boundary consumed by the rest of the core.
// Decorators (caching, hooks, control-plane fallback) wrap individual fields
// and leave the others untouched.
type Adapters struct {
	Tenants       TenantStorage
	CustomDomains CustomDomainStorage
	Clients       ClientStorage
	Connections   ConnectionStorage
	Keys          KeyStorage
	LoginSessions LoginSessionStorage
	Sessions      SessionStorage
	RefreshTokens RefreshTokenStorage
	Roles         RoleStorage
}
