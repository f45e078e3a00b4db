// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
	"github.com/canonical/identity-provider/pkg/tenancy"
)

type clientRequest struct {
	Name              string   `json:"name" validate:"required"`
	Callbacks         []string `json:"callbacks" validate:"omitempty,dive,uri"`
	AllowedLogoutURLs []string `json:"allowed_logout_urls" validate:"omitempty,dive,uri"`
	WebOrigins        []string `json:"web_origins" validate:"omitempty,dive,uri"`
	Connections       []string `json:"connections"`
}

type clientsAPI struct {
	clients  storage.ClientStorage
	validate *validator.Validate

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

func newClientsAPI(clients storage.ClientStorage, validate *validator.Validate, tracer tracing.TracingInterface, logger logging.LoggerInterface) *clientsAPI {
	return &clientsAPI{
		clients:  clients,
		validate: validate,
		tracer:   tracer,
		logger:   logger,
	}
}

func (a *clientsAPI) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/api/v0/clients", a.list)
	mux.Get("/api/v0/clients/{id}", a.get)
	mux.Post("/api/v0/clients", a.create)
	mux.Put("/api/v0/clients/{id}", a.update)
	mux.Delete("/api/v0/clients/{id}", a.remove)
}

func (a *clientsAPI) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.clientsAPI.list")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	clients, err := a.clients.ListClients(ctx, tenantID)
	if err != nil {
		a.logger.Errorf("unable to list clients: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to list clients")
		return
	}

	writeResponse(w, http.StatusOK, clients)
}

func (a *clientsAPI) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.clientsAPI.get")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	client, err := a.clients.GetClient(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "client not found")
			return
		}

		a.logger.Errorf("unable to fetch client: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to fetch client")
		return
	}

	writeResponse(w, http.StatusOK, client)
}

func (a *clientsAPI) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.clientsAPI.create")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	req, ok := a.decode(w, r)
	if !ok {
		return
	}

	client, err := a.clients.CreateClient(ctx, tenantID, &types.Client{
		Name:              req.Name,
		Callbacks:         req.Callbacks,
		AllowedLogoutURLs: req.AllowedLogoutURLs,
		WebOrigins:        req.WebOrigins,
		Connections:       req.Connections,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "client already exists")
			return
		}

		a.logger.Errorf("unable to create client: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to create client")
		return
	}

	writeResponse(w, http.StatusCreated, client)
}

func (a *clientsAPI) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.clientsAPI.update")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	req, ok := a.decode(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	updated, err := a.clients.UpdateClient(ctx, tenantID, id, &types.Client{
		Name:              req.Name,
		Callbacks:         req.Callbacks,
		AllowedLogoutURLs: req.AllowedLogoutURLs,
		WebOrigins:        req.WebOrigins,
		Connections:       req.Connections,
	})
	if err != nil {
		a.logger.Errorf("unable to update client: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to update client")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	client, err := a.clients.GetClient(ctx, tenantID, id)
	if err != nil {
		a.logger.Errorf("unable to fetch updated client: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to fetch updated client")
		return
	}

	writeResponse(w, http.StatusOK, client)
}

func (a *clientsAPI) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "web.clientsAPI.remove")
	defer span.End()

	tenantID, ok := tenancy.GetTenantID(ctx)
	if !ok {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	removed, err := a.clients.RemoveClient(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		a.logger.Errorf("unable to remove client: %v", err)
		writeError(w, http.StatusInternalServerError, "unable to remove client")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	writeResponse(w, http.StatusOK, nil)
}

func (a *clientsAPI) decode(w http.ResponseWriter, r *http.Request) (*clientRequest, bool) {
	req := new(clientRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	return req, true
}
