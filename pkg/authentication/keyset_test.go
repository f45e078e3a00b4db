// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
)

type fakeKeyStorage struct {
	keys      []*types.SigningKey
	listCalls int
}

func (f *fakeKeyStorage) ListSigningKeys(ctx context.Context, tenantID string) ([]*types.SigningKey, error) {
	f.listCalls++
	return f.keys, nil
}

func (f *fakeKeyStorage) CreateSigningKey(ctx context.Context, key *types.SigningKey) (*types.SigningKey, error) {
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeKeyStorage) RevokeSigningKey(ctx context.Context, tenantID, kid string) (bool, error) {
	return false, nil
}

func generateTestKey(t *testing.T, kid string) (*rsa.PrivateKey, *types.SigningKey) {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	publicDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	require.NoError(t, err)

	return private, &types.SigningKey{
		Kid:       kid,
		TenantID:  "t1",
		Algorithm: types.AlgRS256,
		PublicKey: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})),
		Current:   true,
	}
}

func signTestToken(t *testing.T, private *rsa.PrivateKey, kid string, claims *Claims) string {
	t.Helper()

	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(private)
	require.NoError(t, err)

	return signed
}

func jwksDocument(t *testing.T, kid string, private *rsa.PrivateKey) []byte {
	t.Helper()

	key, err := jwk.Import(&private.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256()))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))

	document, err := json.Marshal(set)
	require.NoError(t, err)

	return document
}

func newTestResolver(t *testing.T, jwksURL string, keys *fakeKeyStorage) *KeySetResolver {
	t.Helper()

	resolver, err := NewKeySetResolver(
		context.Background(),
		"",
		jwksURL,
		time.Second,
		keys,
		"t1",
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
	require.NoError(t, err)

	return resolver
}

func newTestVerifier(resolver KeyResolverInterface) *JWTVerifier {
	return NewJWTVerifier(
		"",
		resolver,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
}

func TestVerifyTokenAgainstRemoteJWKS(t *testing.T) {
	private, _ := generateTestKey(t, "kid-1")
	document := jwksDocument(t, "kid-1", private)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(document)
	}))
	defer server.Close()

	storage := &fakeKeyStorage{}
	verifier := newTestVerifier(newTestResolver(t, server.URL, storage))

	claims := &Claims{Scope: "read:clients"}
	claims.Subject = "user-1"

	verified, err := verifier.VerifyToken(context.Background(), "t1", signTestToken(t, private, "kid-1", claims))
	require.NoError(t, err)

	assert.Equal(t, "user-1", verified.Subject)
	assert.Equal(t, 0, storage.listCalls)
}

func TestVerifyTokenFallsBackToStoredKeys(t *testing.T) {
	private, signingKey := generateTestKey(t, "kid-1")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	storage := &fakeKeyStorage{keys: []*types.SigningKey{signingKey}}
	verifier := newTestVerifier(newTestResolver(t, server.URL, storage))

	claims := &Claims{}
	claims.Subject = "user-1"

	verified, err := verifier.VerifyToken(context.Background(), "t1", signTestToken(t, private, "kid-1", claims))
	require.NoError(t, err)

	assert.Equal(t, "user-1", verified.Subject)
	assert.Equal(t, 1, storage.listCalls)
}

func TestUnknownKidInFetchedSetDoesNotFallBack(t *testing.T) {
	private, signingKey := generateTestKey(t, "kid-1")
	otherPrivate, _ := generateTestKey(t, "kid-2")
	document := jwksDocument(t, "kid-2", otherPrivate)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(document)
	}))
	defer server.Close()

	storage := &fakeKeyStorage{keys: []*types.SigningKey{signingKey}}
	verifier := newTestVerifier(newTestResolver(t, server.URL, storage))

	claims := &Claims{}
	claims.Subject = "user-1"

	_, err := verifier.VerifyToken(context.Background(), "t1", signTestToken(t, private, "kid-1", claims))
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUnknownKeyID)
	assert.Equal(t, 0, storage.listCalls)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	private, signingKey := generateTestKey(t, "kid-1")

	storage := &fakeKeyStorage{keys: []*types.SigningKey{signingKey}}
	verifier := newTestVerifier(newTestResolver(t, "", storage))

	claims := &Claims{}
	claims.Subject = "user-1"
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err := verifier.VerifyToken(context.Background(), "t1", signTestToken(t, private, "kid-1", claims))
	assert.Error(t, err)
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	private, _ := generateTestKey(t, "kid-1")
	_, otherSigningKey := generateTestKey(t, "kid-1")

	storage := &fakeKeyStorage{keys: []*types.SigningKey{otherSigningKey}}
	verifier := newTestVerifier(newTestResolver(t, "", storage))

	claims := &Claims{}
	claims.Subject = "user-1"

	_, err := verifier.VerifyToken(context.Background(), "t1", signTestToken(t, private, "kid-1", claims))
	assert.Error(t, err)
}
