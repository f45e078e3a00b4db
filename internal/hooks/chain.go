// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package hooks

import (
	"context"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/tracing"
)

// Chain runs an ordered list of EntityHooks for one entity type.
type Chain[T any] struct {
	hooks []EntityHooks[T]

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

func NewChain[T any](hooks []EntityHooks[T], tracer tracing.TracingInterface, logger logging.LoggerInterface) *Chain[T] {
	return &Chain[T]{
		hooks:  hooks,
		tracer: tracer,
		logger: logger,
	}
}

// Empty reports whether the chain has no hooks at all, in which case wrappers
// hand back the underlying adapter untouched.
func (c *Chain[T]) Empty() bool {
	return c == nil || len(c.hooks) == 0
}

func (c *Chain[T]) RunBeforeCreate(ctx context.Context, hctx HookContext, data *T) (*T, error) {
	ctx, span := c.tracer.Start(ctx, "hooks.Chain.RunBeforeCreate")
	defer span.End()

	for _, h := range c.hooks {
		if h.BeforeCreate == nil {
			continue
		}

		next, err := h.BeforeCreate(ctx, hctx, data)
		if err != nil {
			return nil, err
		}

		data = next
	}

	return data, nil
}

func (c *Chain[T]) RunAfterCreate(ctx context.Context, hctx HookContext, created *T) {
	ctx, span := c.tracer.Start(ctx, "hooks.Chain.RunAfterCreate")
	defer span.End()

	for _, h := range c.hooks {
		if h.AfterCreate == nil {
			continue
		}

		if err := h.AfterCreate(ctx, hctx, created); err != nil {
			c.logger.Errorf("after-create hook failed: %v", err)
		}
	}
}

func (c *Chain[T]) RunBeforeUpdate(ctx context.Context, hctx HookContext, id string, data *T) (*T, error) {
	ctx, span := c.tracer.Start(ctx, "hooks.Chain.RunBeforeUpdate")
	defer span.End()

	for _, h := range c.hooks {
		if h.BeforeUpdate == nil {
			continue
		}

		next, err := h.BeforeUpdate(ctx, hctx, id, data)
		if err != nil {
			return nil, err
		}

		data = next
	}

	return data, nil
}

func (c *Chain[T]) RunAfterUpdate(ctx context.Context, hctx HookContext, updated *T) {
	ctx, span := c.tracer.Start(ctx, "hooks.Chain.RunAfterUpdate")
	defer span.End()

	for _, h := range c.hooks {
		if h.AfterUpdate == nil {
			continue
		}

		if err := h.AfterUpdate(ctx, hctx, updated); err != nil {
			c.logger.Errorf("after-update hook failed: %v", err)
		}
	}
}

func (c *Chain[T]) RunBeforeDelete(ctx context.Context, hctx HookContext, id string) error {
	ctx, span := c.tracer.Start(ctx, "hooks.Chain.RunBeforeDelete")
	defer span.End()

	for _, h := range c.hooks {
		if h.BeforeDelete == nil {
			continue
		}

		if err := h.BeforeDelete(ctx, hctx, id); err != nil {
			return err
		}
	}

	return nil
}

func (c *Chain[T]) RunAfterDelete(ctx context.Context, hctx HookContext, id string) {
	ctx, span := c.tracer.Start(ctx, "hooks.Chain.RunAfterDelete")
	defer span.End()

	for _, h := range c.hooks {
		if h.AfterDelete == nil {
			continue
		}

		if err := h.AfterDelete(ctx, hctx, id); err != nil {
			c.logger.Errorf("after-delete hook failed: %v", err)
		}
	}
}
