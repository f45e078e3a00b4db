// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/pkg/tenancy"
)

type Middleware struct {
	verifier TokenVerifierInterface
	registry RouteRegistryInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Authorize guards the routes present in the registry. Requests to
// unregistered routes pass through untouched. A missing bearer token is
// unauthenticated, a token that fails verification or grants none of the
// required scopes is forbidden. Scope checks pass when any one required
// scope is granted.
func (m *Middleware) Authorize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "authentication.Middleware.Authorize")
			defer span.End()

			scopes, protected := m.registry.RequiredScopes(r.Method, r.URL.Path)
			if !protected {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token, found := m.getBearerToken(r.Header)
			if !found {
				m.errorResponse(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			tenantID, _ := tenancy.GetTenantID(ctx)

			claims, err := m.verifier.VerifyToken(ctx, tenantID, token)
			if err != nil {
				m.logger.Debugf("JWT verification failed: %v", err)
				m.errorResponse(w, http.StatusForbidden, "invalid token")
				return
			}

			if !claims.HasAnyScope(scopes...) {
				m.logger.Security().AuthzFailure(claims.Subject, strings.Join(scopes, " "))
				m.errorResponse(w, http.StatusForbidden, "insufficient scope")
				return
			}

			m.logger.Security().AuthSuccess(claims.Subject)

			ctx = WithUserID(ctx, claims.Subject)
			ctx = WithClaims(ctx, claims)

			// The token's tenant fills in only when resolution came up empty,
			// an explicitly resolved tenant is never overridden.
			if tenantID == "" && claims.TenantID != "" {
				ctx = tenancy.WithTenantID(ctx, claims.TenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) getBearerToken(headers http.Header) (string, bool) {
	bearer := headers.Get("Authorization")
	if bearer == "" {
		return "", false
	}

	// Only support "Bearer <token>" format (RFC 6750)
	if !strings.HasPrefix(bearer, "Bearer ") {
		return "", false
	}

	return strings.TrimPrefix(bearer, "Bearer "), true
}

func (m *Middleware) errorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"message": message,
	}); err != nil {
		m.logger.Errorf("failed to encode error response: %v", err)
	}
}

func NewMiddleware(verifier TokenVerifierInterface, registry RouteRegistryInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		verifier: verifier,
		registry: registry,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}
