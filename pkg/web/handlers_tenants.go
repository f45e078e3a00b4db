// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
)

type tenantsAPI struct {
	tenants storage.TenantStorage

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

func newTenantsAPI(tenants storage.TenantStorage, tracer tracing.TracingInterface, logger logging.LoggerInterface) *tenantsAPI {
	return &tenantsAPI{
		tenants: tenants,
		tracer:  tracer,
		logger:  logger,
	}
}

func (a *tenantsAPI) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/api/v0/tenants/{id}", a.get)
}

func (a *tenantsAPI) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.tenantsAPI.get")
	defer span.End()

	tenant, err := a.tenants.GetTenant(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}

		a.logger.Errorf("unable to fetch tenant: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to fetch tenant")
		return
	}

	writeResponse(w, http.StatusOK, tenant)
}
