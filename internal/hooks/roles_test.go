// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/types"
)

type fakeRoleStorage struct {
	assigned map[string][]string
}

func newFakeRoleStorage() *fakeRoleStorage {
	return &fakeRoleStorage{assigned: make(map[string][]string)}
}

func (f *fakeRoleStorage) GetRole(ctx context.Context, tenantID, id string) (*types.Role, error) {
	permissions, ok := f.assigned[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &types.Role{ID: id, TenantID: tenantID, Permissions: permissions}, nil
}

func (f *fakeRoleStorage) AssignRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error {
	f.assigned[id] = append(f.assigned[id], permissions...)
	return nil
}

func (f *fakeRoleStorage) RemoveRolePermissions(ctx context.Context, tenantID, id string, permissions []string) error {
	kept := []string{}
	for _, p := range f.assigned[id] {
		drop := false
		for _, removed := range permissions {
			if p == removed {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, p)
		}
	}
	f.assigned[id] = kept
	return nil
}

func TestWrapRolesWithoutHooksReturnsInner(t *testing.T) {
	inner := newFakeRoleStorage()

	wrapped := WrapRoles(inner, nil, &storage.Adapters{}, logging.NewNoopLogger())

	assert.Same(t, storage.RoleStorage(inner), wrapped)
}

func TestBeforeAssignHooksThreadPermissions(t *testing.T) {
	inner := newFakeRoleStorage()
	wrapped := WrapRoles(inner, []RoleHooks{
		{
			BeforeAssignPermissions: func(ctx context.Context, hctx HookContext, roleID string, permissions []string) ([]string, error) {
				return append(permissions, "read:clients"), nil
			},
		},
		{
			BeforeAssignPermissions: func(ctx context.Context, hctx HookContext, roleID string, permissions []string) ([]string, error) {
				return append(permissions, "read:tenants"), nil
			},
		},
	}, &storage.Adapters{}, logging.NewNoopLogger())

	err := wrapped.AssignRolePermissions(context.Background(), "t1", "r1", []string{"write:clients"})

	require.NoError(t, err)
	assert.Equal(t, []string{"write:clients", "read:clients", "read:tenants"}, inner.assigned["r1"])
}

func TestBeforeAssignHookErrorCancelsAssignment(t *testing.T) {
	inner := newFakeRoleStorage()
	boom := errors.New("forbidden permission")
	wrapped := WrapRoles(inner, []RoleHooks{
		{
			BeforeAssignPermissions: func(ctx context.Context, hctx HookContext, roleID string, permissions []string) ([]string, error) {
				return nil, boom
			},
		},
	}, &storage.Adapters{}, logging.NewNoopLogger())

	err := wrapped.AssignRolePermissions(context.Background(), "t1", "r1", []string{"write:clients"})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, inner.assigned["r1"])
}

func TestAfterRemoveHookErrorIsNotFatal(t *testing.T) {
	inner := newFakeRoleStorage()
	inner.assigned["r1"] = []string{"write:clients", "read:clients"}

	wrapped := WrapRoles(inner, []RoleHooks{
		{
			AfterRemovePermissions: func(ctx context.Context, hctx HookContext, roleID string, permissions []string) error {
				return errors.New("audit sink unavailable")
			},
		},
	}, &storage.Adapters{}, logging.NewNoopLogger())

	err := wrapped.RemoveRolePermissions(context.Background(), "t1", "r1", []string{"write:clients"})

	require.NoError(t, err)
	assert.Equal(t, []string{"read:clients"}, inner.assigned["r1"])
}
