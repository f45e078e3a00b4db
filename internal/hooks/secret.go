// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package hooks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/canonical/identity-provider/internal/types"
)

// ClientSecretHook fills in a random client secret on create when the caller
// did not provide one.
func ClientSecretHook() EntityHooks[types.Client] {
	return EntityHooks[types.Client]{
		BeforeCreate: func(ctx context.Context, hctx HookContext, client *types.Client) (*types.Client, error) {
			if client.Secret != "" {
				return client, nil
			}

			secret := make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return nil, fmt.Errorf("unable to generate client secret: %w", err)
			}

			client.Secret = hex.EncodeToString(secret)

			return client, nil
		},
	}
}
