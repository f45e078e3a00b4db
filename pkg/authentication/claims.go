// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload the authorizer works with. Granted scopes can
// arrive either as a space-separated scope string or as a permissions array,
// both are honoured.
type Claims struct {
	jwt.RegisteredClaims

	TenantID    string   `json:"tenant_id,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// GrantedScopes returns the union of the permissions array and the scope
// string fields.
func (c *Claims) GrantedScopes() []string {
	granted := slices.Clone(c.Permissions)
	for _, s := range strings.Fields(c.Scope) {
		if !slices.Contains(granted, s) {
			granted = append(granted, s)
		}
	}

	return granted
}

// HasAnyScope reports whether the token grants at least one of the required
// scopes. An empty requirement always passes.
func (c *Claims) HasAnyScope(required ...string) bool {
	if len(required) == 0 {
		return true
	}

	granted := c.GrantedScopes()
	for _, scope := range required {
		if slices.Contains(granted, scope) {
			return true
		}
	}

	return false
}
