// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package reaper removes expired login state. Deletion cascades bottom-up so
// that an expired record still referenced by live state is left alone until
// the referencing record goes too.
package reaper

import (
	"context"
	"time"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/tracing"
)

type Service struct {
	loginSessions storage.LoginSessionStorage
	sessions      storage.SessionStorage
	refreshTokens storage.RefreshTokenStorage

	now func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Result counts the records removed by one cleanup pass.
type Result struct {
	RefreshTokens int `json:"refresh_tokens"`
	Sessions      int `json:"sessions"`
	LoginSessions int `json:"login_sessions"`
}

// Cleanup removes expired refresh tokens, then expired sessions no live
// refresh token still points at, then expired login sessions no surviving
// session still references. The scope narrows the pass to one tenant and/or
// user, the zero scope sweeps everything.
func (s *Service) Cleanup(ctx context.Context, scope storage.Scope) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "reaper.Service.Cleanup")
	defer span.End()

	var result Result
	now := s.now()

	tokens, err := s.refreshTokens.ListRefreshTokens(ctx, scope)
	if err != nil {
		return result, err
	}

	liveSessionRefs := make(map[string]bool)
	for _, token := range tokens {
		if !expired(token.ExpiresAt, now) {
			liveSessionRefs[token.SessionID] = true
			continue
		}

		removed, err := s.refreshTokens.RemoveRefreshToken(ctx, token.TenantID, token.ID)
		if err != nil {
			return result, err
		}
		if removed {
			result.RefreshTokens++
		}
	}

	sessions, err := s.sessions.ListSessions(ctx, scope)
	if err != nil {
		return result, err
	}

	liveLoginRefs := make(map[string]bool)
	for _, session := range sessions {
		if !expired(session.ExpiresAt, now) || liveSessionRefs[session.ID] {
			if session.LoginSessionID != "" {
				liveLoginRefs[session.LoginSessionID] = true
			}
			continue
		}

		removed, err := s.sessions.RemoveSession(ctx, session.TenantID, session.ID)
		if err != nil {
			return result, err
		}
		if removed {
			result.Sessions++
		}
	}

	logins, err := s.loginSessions.ListLoginSessions(ctx, scope)
	if err != nil {
		return result, err
	}

	for _, login := range logins {
		if !expired(login.ExpiresAt, now) || liveLoginRefs[login.ID] {
			continue
		}

		removed, err := s.loginSessions.RemoveLoginSession(ctx, login.TenantID, login.ID)
		if err != nil {
			return result, err
		}
		if removed {
			result.LoginSessions++
		}
	}

	s.logger.Infof(
		"session cleanup removed %d refresh tokens, %d sessions, %d login sessions",
		result.RefreshTokens, result.Sessions, result.LoginSessions,
	)

	return result, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx, storage.Scope{}); err != nil {
				s.logger.Errorf("session cleanup failed: %v", err)
			}
		}
	}
}

// expired treats a zero expiry as never expiring.
func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && expiresAt.Before(now)
}

func NewService(
	loginSessions storage.LoginSessionStorage,
	sessions storage.SessionStorage,
	refreshTokens storage.RefreshTokenStorage,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		loginSessions: loginSessions,
		sessions:      sessions,
		refreshTokens: refreshTokens,
		now:           time.Now,
		tracer:        tracer,
		monitor:       monitor,
		logger:        logger,
	}
}
