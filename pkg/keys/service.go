// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package keys manages per-tenant RSA signing keys and renders the public
// JWKS document token consumers verify against.
package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
)

const rsaKeyBits = 2048

type Service struct {
	keys storage.KeyStorage

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Rotate generates a fresh RSA key pair and promotes it to the tenant's
// current signing key. Previous keys stay valid for verification until
// revoked.
func (s *Service) Rotate(ctx context.Context, tenantID string) (*types.SigningKey, error) {
	ctx, span := s.tracer.Start(ctx, "keys.Service.Rotate")
	defer span.End()

	private, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("unable to generate signing key: %w", err)
	}

	kid, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("unable to encode public key: %w", err)
	}

	key := &types.SigningKey{
		Kid:       kid.String(),
		TenantID:  tenantID,
		Algorithm: types.AlgRS256,
		PublicKey: string(pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: publicDER,
		})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(private),
		})),
		Current: true,
	}

	created, err := s.keys.CreateSigningKey(ctx, key)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("rotated signing key for tenant %s, new kid %s", tenantID, created.Kid)

	return created, nil
}

// Revoke retires a key for both signing and verification.
func (s *Service) Revoke(ctx context.Context, tenantID, kid string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "keys.Service.Revoke")
	defer span.End()

	revoked, err := s.keys.RevokeSigningKey(ctx, tenantID, kid)
	if err != nil {
		return false, err
	}
	if revoked {
		s.logger.Infof("revoked signing key %s for tenant %s", kid, tenantID)
	}

	return revoked, nil
}

// JWKS renders the tenant's unrevoked public keys as a JSON key set.
func (s *Service) JWKS(ctx context.Context, tenantID string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "keys.Service.JWKS")
	defer span.End()

	stored, err := s.keys.ListSigningKeys(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	set := jwk.NewSet()
	for _, sk := range stored {
		pub, err := parsePublicKeyPEM(sk.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("signing key %s is unreadable: %w", sk.Kid, err)
		}

		key, err := jwk.Import(pub)
		if err != nil {
			return nil, fmt.Errorf("unable to build JWK for %s: %w", sk.Kid, err)
		}

		if err := key.Set(jwk.KeyIDKey, sk.Kid); err != nil {
			return nil, err
		}
		if err := key.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
			return nil, err
		}
		if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
			return nil, err
		}

		if err := set.AddKey(key); err != nil {
			return nil, err
		}
	}

	return json.Marshal(set)
}

func parsePublicKeyPEM(data string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in stored public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("stored public key is not RSA")
	}

	return pub, nil
}

func NewService(keys storage.KeyStorage, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Service {
	return &Service{
		keys:    keys,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
