// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAnyScope(t *testing.T) {
	for _, tt := range []struct {
		name        string
		scope       string
		permissions []string
		required    []string
		want        bool
	}{
		{
			name:     "empty requirement always passes",
			scope:    "",
			required: nil,
			want:     true,
		},
		{
			name:     "match in scope string",
			scope:    "read:clients write:clients",
			required: []string{"read:clients"},
			want:     true,
		},
		{
			name:        "match in permissions array",
			permissions: []string{"read:clients"},
			required:    []string{"read:clients"},
			want:        true,
		},
		{
			name:        "one of several required scopes suffices",
			permissions: []string{"write:clients"},
			required:    []string{"read:clients", "write:clients"},
			want:        true,
		},
		{
			name:        "no overlap",
			scope:       "read:tenants",
			permissions: []string{"read:connections"},
			required:    []string{"write:clients"},
			want:        false,
		},
		{
			name:     "empty grants fail a requirement",
			required: []string{"read:clients"},
			want:     false,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			claims := &Claims{Scope: tt.scope, Permissions: tt.permissions}

			assert.Equal(t, tt.want, claims.HasAnyScope(tt.required...))
		})
	}
}

func TestGrantedScopesUnion(t *testing.T) {
	claims := &Claims{
		Scope:       "read:clients write:clients",
		Permissions: []string{"read:clients", "read:tenants"},
	}

	granted := claims.GrantedScopes()

	assert.ElementsMatch(t, []string{"read:clients", "write:clients", "read:tenants"}, granted)
}
