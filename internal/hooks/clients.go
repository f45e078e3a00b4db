// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package hooks

import (
	"context"
	"errors"

	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/types"
)

// WrapClients decorates the client adapter with the chain's lifecycle hooks.
// With an empty chain the inner adapter is returned as is.
func WrapClients(inner storage.ClientStorage, chain *Chain[types.Client], adapters *storage.Adapters) storage.ClientStorage {
	if chain.Empty() {
		return inner
	}

	return &hookedClients{inner: inner, chain: chain, adapters: adapters}
}

type hookedClients struct {
	inner    storage.ClientStorage
	chain    *Chain[types.Client]
	adapters *storage.Adapters
}

func (h *hookedClients) GetClient(ctx context.Context, tenantID, id string) (*types.Client, error) {
	return h.inner.GetClient(ctx, tenantID, id)
}

func (h *hookedClients) ListClients(ctx context.Context, tenantID string) ([]*types.Client, error) {
	return h.inner.ListClients(ctx, tenantID)
}

func (h *hookedClients) CreateClient(ctx context.Context, tenantID string, client *types.Client) (*types.Client, error) {
	hctx := HookContext{TenantID: tenantID, Adapters: h.adapters}

	client, err := h.chain.RunBeforeCreate(ctx, hctx, client)
	if err != nil {
		return nil, err
	}

	created, err := h.inner.CreateClient(ctx, tenantID, client)
	if err != nil {
		return nil, err
	}

	h.chain.RunAfterCreate(ctx, hctx, created)

	return created, nil
}

func (h *hookedClients) UpdateClient(ctx context.Context, tenantID, id string, client *types.Client) (bool, error) {
	hctx := HookContext{TenantID: tenantID, Adapters: h.adapters}

	client, err := h.chain.RunBeforeUpdate(ctx, hctx, id, client)
	if err != nil {
		return false, err
	}

	updated, err := h.inner.UpdateClient(ctx, tenantID, id, client)
	if err != nil || !updated {
		return updated, err
	}

	// The adapter reports success without returning the row, re-fetch so the
	// after hooks see the stored state. A concurrent delete skips them, and a
	// failed re-fetch never turns the committed update into an error.
	fresh, err := h.inner.GetClient(ctx, tenantID, id)
	if err == nil {
		h.chain.RunAfterUpdate(ctx, hctx, fresh)
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.chain.logger.Errorf("re-fetch for after-update hooks failed: %v", err)
	}

	return true, nil
}

func (h *hookedClients) RemoveClient(ctx context.Context, tenantID, id string) (bool, error) {
	hctx := HookContext{TenantID: tenantID, Adapters: h.adapters}

	if err := h.chain.RunBeforeDelete(ctx, hctx, id); err != nil {
		return false, err
	}

	removed, err := h.inner.RemoveClient(ctx, tenantID, id)
	if err != nil || !removed {
		return removed, err
	}

	h.chain.RunAfterDelete(ctx, hctx, id)

	return true, nil
}
