// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import "context"

// Define a private custom type to avoid collisions
type contextKey struct{}

var tenantContextKey = contextKey{}

type domainContextKey struct{}

var customDomainContextKey = domainContextKey{}

// WithTenantID returns a new context with the given tenant ID derived from the parent context.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// GetTenantID retrieves the tenant ID from the context.
// Returns an empty string and false if no tenant was resolved.
func GetTenantID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantContextKey).(string)
	return id, ok && id != ""
}

// WithCustomDomain records the custom domain the request arrived on.
func WithCustomDomain(ctx context.Context, domain string) context.Context {
	return context.WithValue(ctx, customDomainContextKey, domain)
}

// GetCustomDomain retrieves the custom domain the request arrived on, if any.
func GetCustomDomain(ctx context.Context) (string, bool) {
	domain, ok := ctx.Value(customDomainContextKey).(string)
	return domain, ok && domain != ""
}
