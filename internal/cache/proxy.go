// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cache

import (
	"context"
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/tracing"
)

// Policy drives TTL resolution and entity selection for the caching proxy.
type Policy struct {
	// DefaultTTL applies to every cached read without an override. A
	// negative DefaultTTL disables caching while keeping every code path
	// identical.
	DefaultTTL time.Duration
	// MethodTTL overrides the TTL per "entity.method" pair, e.g.
	// "clients.get".
	MethodTTL map[string]time.Duration
	// ExcludedMethods bypass the cache entirely ("entity.method").
	ExcludedMethods []string
	// Entities restricts wrapping to the named adapters; empty wraps all.
	Entities []string
	// KeyPrefix namespaces every cache key, useful on shared stores.
	KeyPrefix string
}

// Proxy decorates storage adapters with cache-aside reads and write-path
// invalidation. Cache failures are logged and degrade to the underlying
// adapter; they never surface to callers.
type Proxy struct {
	cache  CacheAdapter
	policy Policy

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

func NewProxy(cache CacheAdapter, policy Policy, tracer tracing.TracingInterface, logger logging.LoggerInterface) *Proxy {
	return &Proxy{
		cache:  cache,
		policy: policy,
		tracer: tracer,
		logger: logger,
	}
}

func (p *Proxy) includes(entity string) bool {
	return len(p.policy.Entities) == 0 || slices.Contains(p.policy.Entities, entity)
}

func (p *Proxy) excluded(entity, method string) bool {
	return slices.Contains(p.policy.ExcludedMethods, entity+"."+method)
}

func (p *Proxy) ttl(entity, method string) time.Duration {
	if ttl, ok := p.policy.MethodTTL[entity+"."+method]; ok {
		return ttl
	}
	return p.policy.DefaultTTL
}

// key builds a deterministic cache key from positional arguments. Arguments
// are plain identifiers, so joining them is canonical without a serializer.
func (p *Proxy) key(entity, method string, args ...string) string {
	parts := append([]string{entity, method}, args...)
	return p.policy.KeyPrefix + strings.Join(parts, ":")
}

func (p *Proxy) entityPrefix(entity string) string {
	return p.policy.KeyPrefix + entity + ":"
}

// envelope wraps cached values so that a deliberately cached nil result is
// distinguishable from a cache miss.
type envelope struct {
	Nil   bool            `json:"nil,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// cachedRead implements the cache-aside read path for a pointer-shaped result.
func cachedRead[T any](ctx context.Context, p *Proxy, entity, method string, args []string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if !p.includes(entity) || p.excluded(entity, method) {
		return fn(ctx)
	}

	ttl := p.ttl(entity, method)
	key := p.key(entity, method, args...)

	if raw, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Debugf("cache get failed for %s: %v", key, err)
	} else if ok {
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil {
			if env.Nil {
				return zero, nil
			}
			var value T
			if err := json.Unmarshal(env.Value, &value); err == nil {
				return value, nil
			}
		}
		p.logger.Debugf("failed to decode cache entry %s, treating as miss", key)
	}

	value, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if ttl < 0 {
		return value, nil
	}

	env := envelope{}
	if isNil(value) {
		env.Nil = true
	} else {
		encoded, err := json.Marshal(value)
		if err != nil {
			p.logger.Debugf("failed to encode cache entry %s: %v", key, err)
			return value, nil
		}
		env.Value = encoded
	}

	raw, err := json.Marshal(env)
	if err == nil {
		err = p.cache.Set(ctx, key, raw, ttl)
	}
	if err != nil {
		p.logger.Debugf("cache set failed for %s: %v", key, err)
	}

	return value, nil
}

// cachedWrite executes the write and then best-effort invalidates the exact
// get key, the tenant list key and every key under the entity prefix. A
// successful write is never rolled back for a cache problem.
func cachedWrite[T any](ctx context.Context, p *Proxy, entity, tenantID, id string, fn func(context.Context) (T, error)) (T, error) {
	value, err := fn(ctx)
	if err != nil {
		return value, err
	}

	if !p.includes(entity) {
		return value, nil
	}

	if id != "" {
		if err := p.cache.Delete(ctx, p.key(entity, "get", tenantID, id)); err != nil {
			p.logger.Debugf("cache invalidation failed for %s/%s: %v", entity, id, err)
		}
	}
	if err := p.cache.Delete(ctx, p.key(entity, "list", tenantID)); err != nil {
		p.logger.Debugf("cache list invalidation failed for %s: %v", entity, err)
	}
	if _, err := p.cache.DeleteByPrefix(ctx, p.entityPrefix(entity)); err != nil {
		p.logger.Debugf("cache prefix invalidation failed for %s: %v", entity, err)
	}

	return value, nil
}

// isNil catches typed nil pointers and slices so that negative lookups are
// cached with the Nil marker rather than as JSON null.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
