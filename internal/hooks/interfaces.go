// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package hooks layers tenant-configurable lifecycle callbacks on top of the
// storage adapters. Before hooks can rewrite the payload or veto the
// operation, after hooks run side effects once the write has committed.
package hooks

import (
	"context"

	"github.com/canonical/identity-provider/internal/storage"
)

// HookContext carries the tenant the operation runs under plus the full
// adapter set, so hooks can perform related lookups without importing the
// wrapped adapter themselves.
type HookContext struct {
	TenantID string
	Adapters *storage.Adapters
}

// EntityHooks is one set of lifecycle callbacks for entity type T. Every
// field is optional, nil entries are skipped.
//
// Before hooks return the (possibly rewritten) payload which is threaded into
// the next hook in the chain. An error from a before hook cancels the
// operation. After hooks run once the adapter reported success, their errors
// are logged and never propagated.
type EntityHooks[T any] struct {
	BeforeCreate func(ctx context.Context, hctx HookContext, data *T) (*T, error)
	AfterCreate  func(ctx context.Context, hctx HookContext, created *T) error

	BeforeUpdate func(ctx context.Context, hctx HookContext, id string, data *T) (*T, error)
	AfterUpdate  func(ctx context.Context, hctx HookContext, updated *T) error

	BeforeDelete func(ctx context.Context, hctx HookContext, id string) error
	AfterDelete  func(ctx context.Context, hctx HookContext, id string) error
}

// RoleHooks covers the permission-set mutations on the roles adapter, which
// do not fit the create/update/delete shape.
type RoleHooks struct {
	BeforeAssignPermissions func(ctx context.Context, hctx HookContext, roleID string, permissions []string) ([]string, error)
	AfterAssignPermissions  func(ctx context.Context, hctx HookContext, roleID string, permissions []string) error

	BeforeRemovePermissions func(ctx context.Context, hctx HookContext, roleID string, permissions []string) ([]string, error)
	AfterRemovePermissions  func(ctx context.Context, hctx HookContext, roleID string, permissions []string) error
}
