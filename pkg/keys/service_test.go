// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
)

type fakeKeyStorage struct {
	keys []*types.SigningKey
}

func (f *fakeKeyStorage) ListSigningKeys(ctx context.Context, tenantID string) ([]*types.SigningKey, error) {
	out := []*types.SigningKey{}
	for _, key := range f.keys {
		if key.TenantID == tenantID {
			out = append(out, key)
		}
	}
	return out, nil
}

func (f *fakeKeyStorage) CreateSigningKey(ctx context.Context, key *types.SigningKey) (*types.SigningKey, error) {
	if key.Current {
		for _, existing := range f.keys {
			if existing.TenantID == key.TenantID {
				existing.Current = false
			}
		}
	}
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeKeyStorage) RevokeSigningKey(ctx context.Context, tenantID, kid string) (bool, error) {
	for i, key := range f.keys {
		if key.TenantID == tenantID && key.Kid == kid {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func newTestKeyService(store *fakeKeyStorage) *Service {
	return NewService(
		store,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
}

func TestRotateProducesUsableKeyPair(t *testing.T) {
	store := &fakeKeyStorage{}

	key, err := newTestKeyService(store).Rotate(context.Background(), "t1")

	require.NoError(t, err)
	assert.NotEmpty(t, key.Kid)
	assert.Equal(t, types.AlgRS256, key.Algorithm)
	assert.True(t, key.Current)

	privateBlock, _ := pem.Decode([]byte(key.PrivateKey))
	require.NotNil(t, privateBlock)
	private, err := x509.ParsePKCS1PrivateKey(privateBlock.Bytes)
	require.NoError(t, err)

	public, err := parsePublicKeyPEM(key.PublicKey)
	require.NoError(t, err)
	assert.True(t, private.PublicKey.Equal(public))
}

func TestRotateDemotesPreviousCurrentKey(t *testing.T) {
	store := &fakeKeyStorage{}
	service := newTestKeyService(store)

	first, err := service.Rotate(context.Background(), "t1")
	require.NoError(t, err)

	second, err := service.Rotate(context.Background(), "t1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Kid, second.Kid)
	assert.False(t, first.Current)
	assert.True(t, second.Current)
}

func TestRevoke(t *testing.T) {
	store := &fakeKeyStorage{}
	service := newTestKeyService(store)

	key, err := service.Rotate(context.Background(), "t1")
	require.NoError(t, err)

	revoked, err := service.Revoke(context.Background(), "t1", key.Kid)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = service.Revoke(context.Background(), "t1", key.Kid)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestJWKSListsUnrevokedKeys(t *testing.T) {
	store := &fakeKeyStorage{}
	service := newTestKeyService(store)

	first, err := service.Rotate(context.Background(), "t1")
	require.NoError(t, err)
	second, err := service.Rotate(context.Background(), "t1")
	require.NoError(t, err)
	_, err = service.Rotate(context.Background(), "t2")
	require.NoError(t, err)

	doc, err := service.JWKS(context.Background(), "t1")
	require.NoError(t, err)

	set, err := jwk.Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	for _, kid := range []string{first.Kid, second.Kid} {
		key, ok := set.LookupKeyID(kid)
		require.True(t, ok, "kid %s missing from document", kid)

		alg, ok := key.Algorithm()
		require.True(t, ok)
		assert.Equal(t, types.AlgRS256, alg.String())
	}
}

func TestJWKSEmptyForUnknownTenant(t *testing.T) {
	doc, err := newTestKeyService(&fakeKeyStorage{}).JWKS(context.Background(), "nope")

	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":[]}`, string(doc))
}
