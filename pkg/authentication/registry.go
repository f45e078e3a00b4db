// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RouteRegistry maps protected routes to the scopes they require. Lookups go
// through an internal router so that concrete request paths match the
// registered patterns, a route registered once under /clients/{id} answers
// for every client.
type RouteRegistry struct {
	matcher *chi.Mux
	scopes  map[string][]string
}

func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{
		matcher: chi.NewRouter(),
		scopes:  make(map[string][]string),
	}
}

// Register protects method+path with the given scopes. Both {param} and
// :param placeholder styles are accepted. Registering with no scopes marks
// the route as requiring authentication only.
func (r *RouteRegistry) Register(method, path string, scopes ...string) {
	pattern := canonicalPath(path)

	r.scopes[routeKey(method, pattern)] = scopes
	r.matcher.Method(method, pattern, http.NotFoundHandler())
}

func (r *RouteRegistry) RequiredScopes(method, path string) ([]string, bool) {
	rctx := chi.NewRouteContext()
	if !r.matcher.Match(rctx, method, path) {
		return nil, false
	}

	scopes, ok := r.scopes[routeKey(method, rctx.RoutePattern())]

	return scopes, ok
}

func routeKey(method, pattern string) string {
	return method + " " + pattern
}

// canonicalPath rewrites :param segments into chi's {param} form.
func canonicalPath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if strings.HasPrefix(s, ":") && len(s) > 1 {
			segments[i] = "{" + s[1:] + "}"
		}
	}

	return strings.Join(segments, "/")
}
