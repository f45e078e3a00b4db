// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
)

type fakeTenantStorage struct {
	tenants map[string]*types.Tenant
}

func (f *fakeTenantStorage) GetTenant(ctx context.Context, id string) (*types.Tenant, error) {
	tenant, ok := f.tenants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return tenant, nil
}

func (f *fakeTenantStorage) ListTenants(ctx context.Context) ([]*types.Tenant, error) {
	out := make([]*types.Tenant, 0, len(f.tenants))
	for _, t := range f.tenants {
		out = append(out, t)
	}
	return out, nil
}

type fakeCustomDomainStorage struct {
	domains map[string]*types.CustomDomain
}

func (f *fakeCustomDomainStorage) GetCustomDomainByDomain(ctx context.Context, domain string) (*types.CustomDomain, error) {
	d, ok := f.domains[domain]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func newTestMiddleware(tenants map[string]*types.Tenant, domains map[string]*types.CustomDomain) *Middleware {
	return NewMiddleware(
		&fakeTenantStorage{tenants: tenants},
		&fakeCustomDomainStorage{domains: domains},
		"X-Tenant-Id",
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
}

func resolveTenant(t *testing.T, m *Middleware, req *http.Request) (string, bool) {
	t.Helper()

	var tenantID string
	var ok bool

	rec := httptest.NewRecorder()
	m.Resolve()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok = GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	return tenantID, ok
}

func multiTenant() map[string]*types.Tenant {
	return map[string]*types.Tenant{
		"acme":  {ID: "acme"},
		"globex": {ID: "globex"},
	}
}

func TestResolveKeepsExistingTenant(t *testing.T) {
	m := newTestMiddleware(multiTenant(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-Id", "globex")
	req = req.WithContext(WithTenantID(req.Context(), "acme"))

	tenantID, ok := resolveTenant(t, m, req)
	assert.True(t, ok)
	assert.Equal(t, "acme", tenantID)
}

func TestResolveHeaderBeatsDomain(t *testing.T) {
	m := newTestMiddleware(multiTenant(), map[string]*types.CustomDomain{
		"login.acme.com": {TenantID: "acme", Domain: "login.acme.com", Verified: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-Id", "globex")
	req.Header.Set("X-Forwarded-Host", "login.acme.com")

	tenantID, ok := resolveTenant(t, m, req)
	assert.True(t, ok)
	assert.Equal(t, "globex", tenantID)
}

func TestResolveVerifiedCustomDomain(t *testing.T) {
	m := newTestMiddleware(multiTenant(), map[string]*types.CustomDomain{
		"login.acme.com": {TenantID: "acme", Domain: "login.acme.com", Verified: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Host", "login.acme.com")

	tenantID, ok := resolveTenant(t, m, req)
	assert.True(t, ok)
	assert.Equal(t, "acme", tenantID)
}

func TestResolveIgnoresUnverifiedCustomDomain(t *testing.T) {
	m := newTestMiddleware(multiTenant(), map[string]*types.CustomDomain{
		"login.acme.com": {TenantID: "acme", Domain: "login.acme.com", Verified: false},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Host", "login.acme.com")
	req.Host = "login.acme.com"

	_, ok := resolveTenant(t, m, req)
	assert.False(t, ok)
}

func TestResolveSubdomainLabel(t *testing.T) {
	m := newTestMiddleware(multiTenant(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.auth.example.com"

	tenantID, ok := resolveTenant(t, m, req)
	assert.True(t, ok)
	assert.Equal(t, "acme", tenantID)
}

func TestResolveSubdomainIgnoresUnknownLabel(t *testing.T) {
	m := newTestMiddleware(multiTenant(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.auth.example.com"

	_, ok := resolveTenant(t, m, req)
	assert.False(t, ok)
}

func TestResolveSingleTenantAutoDetection(t *testing.T) {
	m := newTestMiddleware(map[string]*types.Tenant{"acme": {ID: "acme"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "example.com"

	tenantID, ok := resolveTenant(t, m, req)
	assert.True(t, ok)
	assert.Equal(t, "acme", tenantID)
}

func TestResolveUnresolvedLeavesContextEmpty(t *testing.T) {
	m := newTestMiddleware(multiTenant(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "example.com"

	_, ok := resolveTenant(t, m, req)
	assert.False(t, ok)
}

func TestResolveStripsPortFromHost(t *testing.T) {
	m := newTestMiddleware(multiTenant(), map[string]*types.CustomDomain{
		"login.acme.com": {TenantID: "acme", Domain: "login.acme.com", Verified: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Host", "login.acme.com:8443")

	tenantID, ok := resolveTenant(t, m, req)
	assert.True(t, ok)
	assert.Equal(t, "acme", tenantID)
}
