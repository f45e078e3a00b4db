// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"crypto/rsa"
)

type KeyResolverInterface interface {
	// ResolveKey resolves a token kid to its RSA verification key,
	// preferring the remote key set over stored keys
	ResolveKey(ctx context.Context, tenantID, kid string) (*rsa.PublicKey, error)
}

type TokenVerifierInterface interface {
	// VerifyToken verifies a raw JWT string and returns its claims
	VerifyToken(ctx context.Context, tenantID, rawToken string) (*Claims, error)
}

type RouteRegistryInterface interface {
	// RequiredScopes returns the scopes protecting the route matching
	// method and path, and whether such a route is registered
	RequiredScopes(method, path string) ([]string, bool)
}
