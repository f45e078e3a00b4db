// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package hooks

import (
	"context"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/types"
)

// WrapRoles decorates the roles adapter with permission-set hooks. With no
// hooks the inner adapter is returned as is.
func WrapRoles(inner storage.RoleStorage, hooks []RoleHooks, adapters *storage.Adapters, logger logging.LoggerInterface) storage.RoleStorage {
	if len(hooks) == 0 {
		return inner
	}

	return &hookedRoles{inner: inner, hooks: hooks, adapters: adapters, logger: logger}
}

type hookedRoles struct {
	inner    storage.RoleStorage
	hooks    []RoleHooks
	adapters *storage.Adapters
	logger   logging.LoggerInterface
}

func (h *hookedRoles) GetRole(ctx context.Context, tenantID, id string) (*types.Role, error) {
	return h.inner.GetRole(ctx, tenantID, id)
}

func (h *hookedRoles) AssignRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error {
	hctx := HookContext{TenantID: tenantID, Adapters: h.adapters}

	for _, hook := range h.hooks {
		if hook.BeforeAssignPermissions == nil {
			continue
		}

		next, err := hook.BeforeAssignPermissions(ctx, hctx, id, permissions)
		if err != nil {
			return err
		}

		permissions = next
	}

	if err := h.inner.AssignRolePermissions(ctx, tenantID, id, permissions); err != nil {
		return err
	}

	for _, hook := range h.hooks {
		if hook.AfterAssignPermissions == nil {
			continue
		}

		if err := hook.AfterAssignPermissions(ctx, hctx, id, permissions); err != nil {
			h.logger.Errorf("after-assign-permissions hook failed: %v", err)
		}
	}

	return nil
}

func (h *hookedRoles) RemoveRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error {
	hctx := HookContext{TenantID: tenantID, Adapters: h.adapters}

	for _, hook := range h.hooks {
		if hook.BeforeRemovePermissions == nil {
			continue
		}

		next, err := hook.BeforeRemovePermissions(ctx, hctx, id, permissions)
		if err != nil {
			return err
		}

		permissions = next
	}

	if err := h.inner.RemoveRolePermissions(ctx, tenantID, id, permissions); err != nil {
		return err
	}

	for _, hook := range h.hooks {
		if hook.AfterRemovePermissions == nil {
			continue
		}

		if err := hook.AfterRemovePermissions(ctx, hctx, id, permissions); err != nil {
			h.logger.Errorf("after-remove-permissions hook failed: %v", err)
		}
	}

	return nil
}
