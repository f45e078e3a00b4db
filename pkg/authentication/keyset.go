// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
)

var otelHTTPClient = http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

// KeySetResolver resolves a token's kid to a verification key. The remote
// JWKS endpoint is authoritative and consulted first, stored signing keys are
// the fallback when the endpoint cannot be reached. A kid absent from a
// successfully fetched key set is rejected outright, a revoked key must not
// be resurrected from storage.
type KeySetResolver struct {
	jwksURL          string
	fetchTimeout     time.Duration
	keys             storage.KeyStorage
	fallbackTenantID string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (r *KeySetResolver) ResolveKey(ctx context.Context, tenantID, kid string) (*rsa.PublicKey, error) {
	ctx, span := r.tracer.Start(ctx, "authentication.KeySetResolver.ResolveKey")
	defer span.End()

	if r.jwksURL != "" {
		key, err := r.fetchRemoteKey(ctx, kid)
		if err == nil {
			return key, nil
		}
		if errors.Is(err, ErrUnknownKeyID) {
			return nil, err
		}

		r.logger.Warnf("JWKS fetch from %s failed, falling back to stored keys: %v", r.jwksURL, err)
	}

	return r.storedKey(ctx, tenantID, kid)
}

func (r *KeySetResolver) fetchRemoteKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	set, err := jwk.Fetch(fetchCtx, r.jwksURL, jwk.WithHTTPClient(&otelHTTPClient))
	if err != nil {
		return nil, err
	}

	key, found := set.LookupKeyID(kid)
	if !found {
		return nil, ErrUnknownKeyID
	}

	var pub rsa.PublicKey
	if err := jwk.Export(key, &pub); err != nil {
		return nil, fmt.Errorf("unable to export JWK %s: %w", kid, err)
	}

	return &pub, nil
}

func (r *KeySetResolver) storedKey(ctx context.Context, tenantID, kid string) (*rsa.PublicKey, error) {
	if tenantID == "" {
		tenantID = r.fallbackTenantID
	}

	keys, err := r.keys.ListSigningKeys(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoUsableKeys, err)
	}

	for _, key := range keys {
		if key.Kid != kid {
			continue
		}

		return parsePublicKeyPEM(key.PublicKey)
	}

	return nil, fmt.Errorf("%w: kid %s not in stored keys", ErrNoUsableKeys, kid)
}

func parsePublicKeyPEM(data string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in stored public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unable to parse stored public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("stored public key is not RSA")
	}

	return pub, nil
}

// discoverJWKSURL resolves the issuer's jwks_uri from its well-known
// configuration.
func discoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	ctx = oidc.ClientContext(ctx, &otelHTTPClient)

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("failed to create OIDC provider: %v", err)
	}

	var wellKnown struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := provider.Claims(&wellKnown); err != nil {
		return "", fmt.Errorf("failed to read provider metadata: %v", err)
	}

	return wellKnown.JWKSURL, nil
}

// NewKeySetResolver builds the kid resolver. With an empty jwksURL the
// issuer's well-known configuration is consulted once at startup, with both
// empty only stored keys are used.
func NewKeySetResolver(
	ctx context.Context,
	issuer string,
	jwksURL string,
	fetchTimeout time.Duration,
	keys storage.KeyStorage,
	fallbackTenantID string,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) (*KeySetResolver, error) {
	if jwksURL == "" && issuer != "" {
		discovered, err := discoverJWKSURL(ctx, issuer)
		if err != nil {
			return nil, err
		}

		logger.Infof("Discovered JWKS URL for issuer %s: %s", issuer, discovered)
		jwksURL = discovered
	}

	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}

	return &KeySetResolver{
		jwksURL:          jwksURL,
		fetchTimeout:     fetchTimeout,
		keys:             keys,
		fallbackTenantID: fallbackTenantID,
		tracer:           tracer,
		monitor:          monitor,
		logger:           logger,
	}, nil
}
