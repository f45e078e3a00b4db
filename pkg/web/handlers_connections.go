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
	"github.com/canonical/identity-provider/pkg/tenancy"
)

type connectionsAPI struct {
	connections storage.ConnectionStorage

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

func newConnectionsAPI(connections storage.ConnectionStorage, tracer tracing.TracingInterface, logger logging.LoggerInterface) *connectionsAPI {
	return &connectionsAPI{
		connections: connections,
		tracer:      tracer,
		logger:      logger,
	}
}

func (a *connectionsAPI) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/api/v0/connections", a.list)
	mux.Get("/api/v0/connections/{id}", a.get)
}

func (a *connectionsAPI) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.connectionsAPI.list")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	connections, err := a.connections.ListConnections(ctx, tenantID)
	if err != nil {
		a.logger.Errorf("unable to list connections: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to list connections")
		return
	}

	writeResponse(w, http.StatusOK, connections)
}

func (a *connectionsAPI) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.connectionsAPI.get")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	connection, err := a.connections.GetConnection(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "connection not found")
			return
		}

		a.logger.Errorf("unable to fetch connection: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to fetch connection")
		return
	}

	writeResponse(w, http.StatusOK, connection)
}
