// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/pkg/reaper"
	"github.com/canonical/identity-provider/pkg/tenancy"
)

type sessionsAPI struct {
	reaper *reaper.Service

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

func newSessionsAPI(reaper *reaper.Service, tracer tracing.TracingInterface, logger logging.LoggerInterface) *sessionsAPI {
	return &sessionsAPI{
		reaper: reaper,
		tracer: tracer,
		logger: logger,
	}
}

func (a *sessionsAPI) RegisterEndpoints(mux *chi.Mux) {
	mux.Post("/api/v0/sessions/cleanup", a.cleanup)
}

// cleanup runs one reaper pass. The resolved tenant narrows the sweep, the
// optional user_id query parameter narrows it further.
func (a *sessionsAPI) cleanup(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.sessionsAPI.cleanup")
	defer span.End()

	scope := storage.Scope{
		UserID: r.URL.Query().Get("user_id"),
	}
	if tenantID, ok := tenancy.GetTenantID(ctx); ok {
		scope.TenantID = tenantID
	}

	result, err := a.reaper.Cleanup(ctx, scope)
	if err != nil {
		a.logger.Errorf("session cleanup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "session cleanup failed")
		return
	}

	writeResponse(w, http.StatusOK, result)
}
