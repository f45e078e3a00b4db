// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cache

import (
	"context"
	"time"
)

// TTL semantics shared by every adapter: ttl > 0 expires at now+ttl, ttl == 0
// never expires, ttl < 0 stores the value already expired. The negative case
// lets "caching disabled" flow through the same write path as everything else.
type CacheAdapter interface {
	// Get returns the stored value and whether the key was present and
	// unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key with the given prefix and returns
	// how many were deleted.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	Clear(ctx context.Context) error
}
