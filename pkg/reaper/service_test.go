// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
)

type fakeSessionStore struct {
	logins        map[string]*types.LoginSession
	sessions      map[string]*types.Session
	refreshTokens map[string]*types.RefreshToken
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		logins:        make(map[string]*types.LoginSession),
		sessions:      make(map[string]*types.Session),
		refreshTokens: make(map[string]*types.RefreshToken),
	}
}

func (f *fakeSessionStore) inScope(scope storage.Scope, tenantID, userID string) bool {
	if scope.TenantID != "" && scope.TenantID != tenantID {
		return false
	}
	if scope.UserID != "" && scope.UserID != userID {
		return false
	}
	return true
}

func (f *fakeSessionStore) GetLoginSession(ctx context.Context, tenantID, id string) (*types.LoginSession, error) {
	if login, ok := f.logins[id]; ok && login.TenantID == tenantID {
		return login, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeSessionStore) ListLoginSessions(ctx context.Context, scope storage.Scope) ([]*types.LoginSession, error) {
	out := []*types.LoginSession{}
	for _, login := range f.logins {
		if f.inScope(scope, login.TenantID, "") {
			out = append(out, login)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) CreateLoginSession(ctx context.Context, login *types.LoginSession) (*types.LoginSession, error) {
	f.logins[login.ID] = login
	return login, nil
}

func (f *fakeSessionStore) UpdateLoginSession(ctx context.Context, tenantID, id string, login *types.LoginSession) (bool, error) {
	if _, ok := f.logins[id]; !ok {
		return false, nil
	}
	f.logins[id] = login
	return true, nil
}

func (f *fakeSessionStore) RemoveLoginSession(ctx context.Context, tenantID, id string) (bool, error) {
	if _, ok := f.logins[id]; !ok {
		return false, nil
	}
	delete(f.logins, id)
	return true, nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, tenantID, id string) (*types.Session, error) {
	if session, ok := f.sessions[id]; ok && session.TenantID == tenantID {
		return session, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeSessionStore) ListSessions(ctx context.Context, scope storage.Scope) ([]*types.Session, error) {
	out := []*types.Session{}
	for _, session := range f.sessions {
		if f.inScope(scope, session.TenantID, session.UserID) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) CreateSession(ctx context.Context, session *types.Session) (*types.Session, error) {
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeSessionStore) UpdateSession(ctx context.Context, tenantID, id string, session *types.Session) (bool, error) {
	if _, ok := f.sessions[id]; !ok {
		return false, nil
	}
	f.sessions[id] = session
	return true, nil
}

func (f *fakeSessionStore) SetSessionUsed(ctx context.Context, tenantID, id string) (bool, error) {
	session, ok := f.sessions[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	session.UsedAt = &now
	return true, nil
}

func (f *fakeSessionStore) RemoveSession(ctx context.Context, tenantID, id string) (bool, error) {
	if _, ok := f.sessions[id]; !ok {
		return false, nil
	}
	delete(f.sessions, id)
	return true, nil
}

func (f *fakeSessionStore) GetRefreshToken(ctx context.Context, tenantID, id string) (*types.RefreshToken, error) {
	if token, ok := f.refreshTokens[id]; ok && token.TenantID == tenantID {
		return token, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeSessionStore) ListRefreshTokens(ctx context.Context, scope storage.Scope) ([]*types.RefreshToken, error) {
	out := []*types.RefreshToken{}
	for _, token := range f.refreshTokens {
		if f.inScope(scope, token.TenantID, token.UserID) {
			out = append(out, token)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) CreateRefreshToken(ctx context.Context, token *types.RefreshToken) (*types.RefreshToken, error) {
	f.refreshTokens[token.ID] = token
	return token, nil
}

func (f *fakeSessionStore) RemoveRefreshToken(ctx context.Context, tenantID, id string) (bool, error) {
	if _, ok := f.refreshTokens[id]; !ok {
		return false, nil
	}
	delete(f.refreshTokens, id)
	return true, nil
}

func newTestService(store *fakeSessionStore, now time.Time) *Service {
	s := NewService(
		store, store, store,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
	s.now = func() time.Time { return now }
	return s
}

func TestCleanupRemovesExpiredRefreshTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.refreshTokens["rt-expired"] = &types.RefreshToken{ID: "rt-expired", TenantID: "t1", ExpiresAt: now.Add(-time.Hour)}
	store.refreshTokens["rt-live"] = &types.RefreshToken{ID: "rt-live", TenantID: "t1", ExpiresAt: now.Add(time.Hour)}

	result, err := newTestService(store, now).Cleanup(context.Background(), storage.Scope{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.RefreshTokens)
	assert.NotContains(t, store.refreshTokens, "rt-expired")
	assert.Contains(t, store.refreshTokens, "rt-live")
}

func TestCleanupKeepsExpiredSessionWithLiveRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.sessions["s1"] = &types.Session{ID: "s1", TenantID: "t1", ExpiresAt: now.Add(-time.Hour)}
	store.refreshTokens["rt1"] = &types.RefreshToken{ID: "rt1", TenantID: "t1", SessionID: "s1", ExpiresAt: now.Add(time.Hour)}

	result, err := newTestService(store, now).Cleanup(context.Background(), storage.Scope{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Sessions)
	assert.Contains(t, store.sessions, "s1")
}

func TestCleanupRemovesExpiredSessionWhenTokenExpiredToo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.sessions["s1"] = &types.Session{ID: "s1", TenantID: "t1", ExpiresAt: now.Add(-time.Hour)}
	store.refreshTokens["rt1"] = &types.RefreshToken{ID: "rt1", TenantID: "t1", SessionID: "s1", ExpiresAt: now.Add(-time.Minute)}

	result, err := newTestService(store, now).Cleanup(context.Background(), storage.Scope{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.RefreshTokens)
	assert.Equal(t, 1, result.Sessions)
	assert.Empty(t, store.sessions)
}

func TestCleanupKeepsExpiredLoginSessionWithSurvivingSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.logins["l1"] = &types.LoginSession{ID: "l1", TenantID: "t1", ExpiresAt: now.Add(-time.Hour)}
	store.sessions["s1"] = &types.Session{ID: "s1", TenantID: "t1", LoginSessionID: "l1", ExpiresAt: now.Add(time.Hour)}

	result, err := newTestService(store, now).Cleanup(context.Background(), storage.Scope{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.LoginSessions)
	assert.Contains(t, store.logins, "l1")
}

func TestCleanupCascadesThroughTheChain(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.logins["l1"] = &types.LoginSession{ID: "l1", TenantID: "t1", ExpiresAt: now.Add(-time.Hour)}
	store.sessions["s1"] = &types.Session{ID: "s1", TenantID: "t1", LoginSessionID: "l1", ExpiresAt: now.Add(-time.Hour)}
	store.refreshTokens["rt1"] = &types.RefreshToken{ID: "rt1", TenantID: "t1", SessionID: "s1", ExpiresAt: now.Add(-time.Hour)}

	result, err := newTestService(store, now).Cleanup(context.Background(), storage.Scope{})

	require.NoError(t, err)
	assert.Equal(t, Result{RefreshTokens: 1, Sessions: 1, LoginSessions: 1}, result)
	assert.Empty(t, store.refreshTokens)
	assert.Empty(t, store.sessions)
	assert.Empty(t, store.logins)
}

func TestCleanupTreatsZeroExpiryAsNever(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.sessions["s1"] = &types.Session{ID: "s1", TenantID: "t1"}
	store.logins["l1"] = &types.LoginSession{ID: "l1", TenantID: "t1"}

	result, err := newTestService(store, now).Cleanup(context.Background(), storage.Scope{})

	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Contains(t, store.sessions, "s1")
	assert.Contains(t, store.logins, "l1")
}

func TestCleanupHonoursScope(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeSessionStore()
	store.refreshTokens["rt-t1"] = &types.RefreshToken{ID: "rt-t1", TenantID: "t1", UserID: "u1", ExpiresAt: now.Add(-time.Hour)}
	store.refreshTokens["rt-t2"] = &types.RefreshToken{ID: "rt-t2", TenantID: "t2", UserID: "u2", ExpiresAt: now.Add(-time.Hour)}

	result, err := newTestService(store, now).Cleanup(context.Background(), storage.Scope{TenantID: "t1"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.RefreshTokens)
	assert.NotContains(t, store.refreshTokens, "rt-t1")
	assert.Contains(t, store.refreshTokens, "rt-t2")
}
