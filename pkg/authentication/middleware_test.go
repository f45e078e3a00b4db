// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/pkg/tenancy"
)

type fakeVerifier struct {
	claims *Claims
	err    error

	tenantID string
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, tenantID, rawToken string) (*Claims, error) {
	f.tenantID = tenantID
	return f.claims, f.err
}

func newTestMiddleware(verifier TokenVerifierInterface, registry *RouteRegistry) *Middleware {
	return NewMiddleware(
		verifier,
		registry,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
}

func protectedRegistry() *RouteRegistry {
	registry := NewRouteRegistry()
	registry.Register(http.MethodGet, "/api/v0/clients", "read:clients", "admin:clients")
	return registry
}

func serveWith(t *testing.T, m *Middleware, req *http.Request, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	if next == nil {
		next = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	m.Authorize()(next).ServeHTTP(rec, req)

	return rec
}

func TestAuthorizePassesUnregisteredRoutes(t *testing.T) {
	m := newTestMiddleware(&fakeVerifier{err: errors.New("never called")}, protectedRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v0/status", nil)
	rec := serveWith(t, m, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorizeMissingBearerIsUnauthorized(t *testing.T) {
	m := newTestMiddleware(&fakeVerifier{}, protectedRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v0/clients", nil)
	rec := serveWith(t, m, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizeMalformedAuthorizationHeaderIsUnauthorized(t *testing.T) {
	m := newTestMiddleware(&fakeVerifier{}, protectedRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v0/clients", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := serveWith(t, m, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizeInvalidTokenIsForbidden(t *testing.T) {
	m := newTestMiddleware(&fakeVerifier{err: errors.New("bad signature")}, protectedRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v0/clients", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serveWith(t, m, req, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthorizeInsufficientScopeIsForbidden(t *testing.T) {
	claims := &Claims{Scope: "read:tenants"}
	m := newTestMiddleware(&fakeVerifier{claims: claims}, protectedRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v0/clients", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serveWith(t, m, req, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthorizeAnyRequiredScopeSuffices(t *testing.T) {
	claims := &Claims{Permissions: []string{"admin:clients"}}
	claims.Subject = "user-1"
	m := newTestMiddleware(&fakeVerifier{claims: claims}, protectedRegistry())

	var userID string
	next := func(w http.ResponseWriter, r *http.Request) {
		userID, _ = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v0/clients", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serveWith(t, m, req, next)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", userID)
}

func TestAuthorizeAdoptsTokenTenantWhenUnresolved(t *testing.T) {
	claims := &Claims{TenantID: "t1", Scope: "read:clients"}
	m := newTestMiddleware(&fakeVerifier{claims: claims}, protectedRegistry())

	var tenantID string
	next := func(w http.ResponseWriter, r *http.Request) {
		tenantID, _ = tenancy.GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v0/clients", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := serveWith(t, m, req, next)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", tenantID)
}

func TestAuthorizeKeepsResolvedTenant(t *testing.T) {
	claims := &Claims{TenantID: "token-tenant", Scope: "read:clients"}
	m := newTestMiddleware(&fakeVerifier{claims: claims}, protectedRegistry())

	var tenantID string
	next := func(w http.ResponseWriter, r *http.Request) {
		tenantID, _ = tenancy.GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v0/clients", nil)
	req.Header.Set("Authorization", "Bearer token")
	req = req.WithContext(tenancy.WithTenantID(req.Context(), "resolved-tenant"))
	rec := serveWith(t, m, req, next)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "resolved-tenant", tenantID)
}
