// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteRegistryMatchesConcretePaths(t *testing.T) {
	registry := NewRouteRegistry()
	registry.Register(http.MethodGet, "/api/v0/clients/{id}", "read:clients")

	scopes, ok := registry.RequiredScopes(http.MethodGet, "/api/v0/clients/123")
	assert.True(t, ok)
	assert.Equal(t, []string{"read:clients"}, scopes)
}

func TestRouteRegistryColonAndBraceStylesAreEquivalent(t *testing.T) {
	colon := NewRouteRegistry()
	colon.Register(http.MethodGet, "/api/v0/clients/:id", "read:clients")

	brace := NewRouteRegistry()
	brace.Register(http.MethodGet, "/api/v0/clients/{id}", "read:clients")

	colonScopes, colonOK := colon.RequiredScopes(http.MethodGet, "/api/v0/clients/abc")
	braceScopes, braceOK := brace.RequiredScopes(http.MethodGet, "/api/v0/clients/abc")

	assert.True(t, colonOK)
	assert.True(t, braceOK)
	assert.Equal(t, braceScopes, colonScopes)
}

func TestRouteRegistryUnregisteredRoute(t *testing.T) {
	registry := NewRouteRegistry()
	registry.Register(http.MethodGet, "/api/v0/clients", "read:clients")

	_, ok := registry.RequiredScopes(http.MethodPost, "/api/v0/clients")
	assert.False(t, ok)

	_, ok = registry.RequiredScopes(http.MethodGet, "/api/v0/tenants/t1")
	assert.False(t, ok)
}

func TestRouteRegistryDistinguishesMethods(t *testing.T) {
	registry := NewRouteRegistry()
	registry.Register(http.MethodGet, "/api/v0/clients", "read:clients")
	registry.Register(http.MethodPost, "/api/v0/clients", "write:clients")

	scopes, ok := registry.RequiredScopes(http.MethodPost, "/api/v0/clients")
	assert.True(t, ok)
	assert.Equal(t, []string{"write:clients"}, scopes)
}

func TestRouteRegistryNoScopesMeansAuthenticationOnly(t *testing.T) {
	registry := NewRouteRegistry()
	registry.Register(http.MethodGet, "/api/v0/me")

	scopes, ok := registry.RequiredScopes(http.MethodGet, "/api/v0/me")
	assert.True(t, ok)
	assert.Empty(t, scopes)
}
