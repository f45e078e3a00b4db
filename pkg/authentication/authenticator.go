// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"fmt"
	"time"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
)

// NewJWTAuthenticator wires the key resolver and token verifier together.
// With a JWKS URL configured it is used directly, otherwise the issuer's
// well-known configuration is consulted. Stored signing keys back both modes
// when the remote key set is unreachable.
func NewJWTAuthenticator(
	ctx context.Context,
	issuer string,
	jwksURL string,
	jwksFetchTimeout time.Duration,
	keys storage.KeyStorage,
	fallbackTenantID string,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) (TokenVerifierInterface, error) {
	resolver, err := NewKeySetResolver(ctx, issuer, jwksURL, jwksFetchTimeout, keys, fallbackTenantID, tracer, monitor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create key resolver: %v", err)
	}

	switch {
	case jwksURL != "":
		logger.Infof("Using manual JWKS URL: %s", jwksURL)
	case issuer != "":
		logger.Infof("Using OIDC discovery for issuer: %s", issuer)
	default:
		logger.Info("Using stored signing keys only")
	}
	logger.Info("JWT authentication is enabled")

	return NewJWTVerifier(issuer, resolver, tracer, monitor, logger), nil
}
