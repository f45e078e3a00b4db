// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package tenancy resolves which tenant a request belongs to and publishes it
// on the request context for the rest of the stack.
package tenancy

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
)

type Middleware struct {
	tenants       storage.TenantStorage
	customDomains storage.CustomDomainStorage
	headerName    string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Resolve determines the request's tenant. The sources are tried in strict
// priority order and the first match wins:
//  1. a tenant already present on the context
//  2. the tenant ID header
//  3. a verified custom domain matching the forwarded host
//  4. the leftmost subdomain label matching a tenant ID
//  5. the only tenant, when exactly one exists
//
// An unresolved tenant is not an error here. Handlers that need one reject
// the request themselves.
func (m *Middleware) Resolve() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "tenancy.Middleware.Resolve")
			defer span.End()

			if _, ok := GetTenantID(ctx); ok {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if id := r.Header.Get(m.headerName); id != "" {
				next.ServeHTTP(w, r.WithContext(WithTenantID(ctx, id)))
				return
			}

			host := requestHost(r)

			if host != "" {
				domain, err := m.customDomains.GetCustomDomainByDomain(ctx, host)
				if err == nil && domain.Verified {
					ctx = WithCustomDomain(ctx, domain.Domain)
					next.ServeHTTP(w, r.WithContext(WithTenantID(ctx, domain.TenantID)))
					return
				}
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					m.logger.Errorf("custom domain lookup failed for %s: %v", host, err)
				}
			}

			if label, ok := subdomainLabel(host); ok {
				if _, err := m.tenants.GetTenant(ctx, label); err == nil {
					next.ServeHTTP(w, r.WithContext(WithTenantID(ctx, label)))
					return
				} else if !errors.Is(err, storage.ErrNotFound) {
					m.logger.Errorf("subdomain tenant lookup failed for %s: %v", label, err)
				}
			}

			tenants, err := m.tenants.ListTenants(ctx)
			if err != nil {
				m.logger.Errorf("tenant list for auto-detection failed: %v", err)
			} else if len(tenants) == 1 {
				next.ServeHTTP(w, r.WithContext(WithTenantID(ctx, tenants[0].ID)))
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestHost prefers the forwarded host set by the ingress, with the
// connection host as fallback. The port is dropped.
func requestHost(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	return strings.ToLower(host)
}

// subdomainLabel extracts the leftmost DNS label, which by convention carries
// the tenant ID on shared domains. Bare or two-label hosts have no tenant
// label.
func subdomainLabel(host string) (string, bool) {
	parts := strings.Split(host, ".")
	if len(parts) < 3 || parts[0] == "" {
		return "", false
	}

	return parts[0], true
}

func NewMiddleware(
	tenants storage.TenantStorage,
	customDomains storage.CustomDomainStorage,
	headerName string,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Middleware {
	return &Middleware{
		tenants:       tenants,
		customDomains: customDomains,
		headerName:    headerName,
		tracer:        tracer,
		monitor:       monitor,
		logger:        logger,
	}
}
