// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/pkg/keys"
	"github.com/canonical/identity-provider/pkg/tenancy"
)

type jwksAPI struct {
	keys *keys.Service

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

func newJWKSAPI(keys *keys.Service, tracer tracing.TracingInterface, logger logging.LoggerInterface) *jwksAPI {
	return &jwksAPI{
		keys:   keys,
		tracer: tracer,
		logger: logger,
	}
}

func (a *jwksAPI) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/.well-known/jwks.json", a.jwks)
}

func (a *jwksAPI) jwks(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.jwksAPI.jwks")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	document, err := a.keys.JWKS(ctx, tenantID)
	if err != nil {
		a.logger.Errorf("unable to render JWKS: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to render key set")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(document); err != nil {
		a.logger.Errorf("failed to write JWKS response: %v", err)
	}
}
