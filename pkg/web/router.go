// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/canonical/identity-provider/internal/db"
	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/pkg/authentication"
	"github.com/canonical/identity-provider/pkg/keys"
	"github.com/canonical/identity-provider/pkg/metrics"
	"github.com/canonical/identity-provider/pkg/reaper"
	"github.com/canonical/identity-provider/pkg/status"
	"github.com/canonical/identity-provider/pkg/tenancy"
)

// RouterConfig bundles the wired core the HTTP surface sits on.
type RouterConfig struct {
	Adapters storage.Adapters
	DBClient db.DBClientInterface

	TenancyMiddleware *tenancy.Middleware
	AuthMiddleware    *authentication.Middleware
	Registry          *authentication.RouteRegistry

	Keys   *keys.Service
	Reaper *reaper.Service
}

func NewRouter(
	cfg RouterConfig,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	registerProtectedRoutes(cfg.Registry)

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS([]string{"*"}),
		cfg.TenancyMiddleware.Resolve(),
		cfg.AuthMiddleware.Authorize(),
		db.TransactionMiddleware(cfg.DBClient, logger),
	)

	router.Use(middlewares...)

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(tracer, monitor, logger).RegisterEndpoints(router)

	validate := validator.New(validator.WithRequiredStructEnabled())

	newClientsAPI(cfg.Adapters.Clients, validate, tracer, logger).RegisterEndpoints(router)
	newConnectionsAPI(cfg.Adapters.Connections, tracer, logger).RegisterEndpoints(router)
	newTenantsAPI(cfg.Adapters.Tenants, tracer, logger).RegisterEndpoints(router)
	newSessionsAPI(cfg.Reaper, tracer, logger).RegisterEndpoints(router)
	newJWKSAPI(cfg.Keys, tracer, logger).RegisterEndpoints(router)

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}

// registerProtectedRoutes declares which routes require a token and which
// scopes unlock them. Routes not listed here are public.
func registerProtectedRoutes(registry *authentication.RouteRegistry) {
	registry.Register(http.MethodGet, "/api/v0/clients", "read:clients")
	registry.Register(http.MethodGet, "/api/v0/clients/{id}", "read:clients")
	registry.Register(http.MethodPost, "/api/v0/clients", "write:clients")
	registry.Register(http.MethodPut, "/api/v0/clients/{id}", "write:clients")
	registry.Register(http.MethodDelete, "/api/v0/clients/{id}", "write:clients")

	registry.Register(http.MethodGet, "/api/v0/connections", "read:connections")
	registry.Register(http.MethodGet, "/api/v0/connections/{id}", "read:connections")

	registry.Register(http.MethodGet, "/api/v0/tenants/{id}", "read:tenants")

	registry.Register(http.MethodPost, "/api/v0/sessions/cleanup", "write:sessions")
}

func middlewareCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Tenant-Id", "X-Forwarded-Host"},
		MaxAge:         300,
	})
}
