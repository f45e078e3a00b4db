// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/identity-provider/internal/types"
)

var _ LoginSessionStorage = (*Storage)(nil)
var _ SessionStorage = (*Storage)(nil)
var _ RefreshTokenStorage = (*Storage)(nil)

// scopeEq translates a Scope into a squirrel predicate.
func scopeEq(scope Scope) sq.Eq {
	eq := sq.Eq{}
	if scope.TenantID != "" {
		eq["tenant_id"] = scope.TenantID
	}
	if scope.UserID != "" {
		eq["user_id"] = scope.UserID
	}
	return eq
}

func (s *Storage) GetLoginSession(ctx context.Context, tenantID, id string) (*types.LoginSession, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetLoginSession")
	defer span.End()

	row := s.db.Statement(ctx).
		Select("id", "tenant_id", "csrf_token", "auth_params", "state", "session_id", "expires_at", "created_at").
		From("login_sessions").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		QueryRowContext(ctx)

	ls, err := scanLoginSession(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get login session: %w", err)
	}

	return ls, nil
}

func (s *Storage) ListLoginSessions(ctx context.Context, scope Scope) ([]*types.LoginSession, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListLoginSessions")
	defer span.End()

	// Login sessions carry no user column; only the tenant part of the
	// scope applies.
	eq := sq.Eq{}
	if scope.TenantID != "" {
		eq["tenant_id"] = scope.TenantID
	}

	rows, err := s.db.Statement(ctx).
		Select("id", "tenant_id", "csrf_token", "auth_params", "state", "session_id", "expires_at", "created_at").
		From("login_sessions").
		Where(eq).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list login sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.LoginSession
	for rows.Next() {
		ls, err := scanLoginSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login session: %w", err)
		}
		sessions = append(sessions, ls)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

func (s *Storage) CreateLoginSession(ctx context.Context, login *types.LoginSession) (*types.LoginSession, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateLoginSession")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate login session ID: %w", err)
	}

	params, err := jsonb(login.AuthParams)
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth params: %w", err)
	}

	state := login.State
	if state == "" {
		state = types.LoginStatePending
	}

	row := s.db.Statement(ctx).
		Insert("login_sessions").
		Columns("id", "tenant_id", "csrf_token", "auth_params", "state", "session_id", "expires_at").
		Values(id.String(), login.TenantID, login.CSRFToken, params, state, nullable(login.SessionID), login.ExpiresAt).
		Suffix("RETURNING id, tenant_id, csrf_token, auth_params, state, session_id, expires_at, created_at").
		QueryRowContext(ctx)

	created, err := scanLoginSession(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to insert login session: %w", err)
	}

	return created, nil
}

func (s *Storage) UpdateLoginSession(ctx context.Context, tenantID, id string, login *types.LoginSession) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateLoginSession")
	defer span.End()

	params, err := jsonb(login.AuthParams)
	if err != nil {
		return false, fmt.Errorf("failed to encode auth params: %w", err)
	}

	res, err := s.db.Statement(ctx).
		Update("login_sessions").
		SetMap(map[string]interface{}{
			"auth_params": params,
			"state":       login.State,
			"session_id":  nullable(login.SessionID),
			"expires_at":  login.ExpiresAt,
		}).
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update login session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

func (s *Storage) RemoveLoginSession(ctx context.Context, tenantID, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RemoveLoginSession")
	defer span.End()

	return s.deleteByID(ctx, "login_sessions", tenantID, id)
}

func (s *Storage) GetSession(ctx context.Context, tenantID, id string) (*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetSession")
	defer span.End()

	row := s.db.Statement(ctx).
		Select("id", "tenant_id", "user_id", "client_ids", "device_fingerprint", "login_session_id", "expires_at", "used_at", "created_at").
		From("sessions").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		QueryRowContext(ctx)

	session, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (s *Storage) ListSessions(ctx context.Context, scope Scope) ([]*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListSessions")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "tenant_id", "user_id", "client_ids", "device_fingerprint", "login_session_id", "expires_at", "used_at", "created_at").
		From("sessions").
		Where(scopeEq(scope)).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		session, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

func (s *Storage) CreateSession(ctx context.Context, session *types.Session) (*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateSession")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	clientIDs, err := jsonb(session.ClientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode client ids: %w", err)
	}

	row := s.db.Statement(ctx).
		Insert("sessions").
		Columns("id", "tenant_id", "user_id", "client_ids", "device_fingerprint", "login_session_id", "expires_at").
		Values(id.String(), session.TenantID, session.UserID, clientIDs, session.DeviceFingerprint, nullable(session.LoginSessionID), session.ExpiresAt).
		Suffix("RETURNING id, tenant_id, user_id, client_ids, device_fingerprint, login_session_id, expires_at, used_at, created_at").
		QueryRowContext(ctx)

	created, err := scanSession(row.Scan)
	if err != nil {
		return nil, WrapForeignKeyError(err, "failed to insert session")
	}

	return created, nil
}

func (s *Storage) UpdateSession(ctx context.Context, tenantID, id string, session *types.Session) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateSession")
	defer span.End()

	clientIDs, err := jsonb(session.ClientIDs)
	if err != nil {
		return false, fmt.Errorf("failed to encode client ids: %w", err)
	}

	res, err := s.db.Statement(ctx).
		Update("sessions").
		SetMap(map[string]interface{}{
			"client_ids":       clientIDs,
			"login_session_id": nullable(session.LoginSessionID),
			"expires_at":       session.ExpiresAt,
		}).
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

func (s *Storage) SetSessionUsed(ctx context.Context, tenantID, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.SetSessionUsed")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("sessions").
		Set("used_at", time.Now().UTC()).
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark session used: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

func (s *Storage) RemoveSession(ctx context.Context, tenantID, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RemoveSession")
	defer span.End()

	return s.deleteByID(ctx, "sessions", tenantID, id)
}

func (s *Storage) GetRefreshToken(ctx context.Context, tenantID, id string) (*types.RefreshToken, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetRefreshToken")
	defer span.End()

	row := s.db.Statement(ctx).
		Select("id", "tenant_id", "session_id", "user_id", "client_id", "scopes", "rotating", "expires_at", "created_at").
		From("refresh_tokens").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		QueryRowContext(ctx)

	token, err := scanRefreshToken(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

func (s *Storage) ListRefreshTokens(ctx context.Context, scope Scope) ([]*types.RefreshToken, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListRefreshTokens")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "tenant_id", "session_id", "user_id", "client_id", "scopes", "rotating", "expires_at", "created_at").
		From("refresh_tokens").
		Where(scopeEq(scope)).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*types.RefreshToken
	for rows.Next() {
		token, err := scanRefreshToken(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tokens, nil
}

func (s *Storage) CreateRefreshToken(ctx context.Context, token *types.RefreshToken) (*types.RefreshToken, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateRefreshToken")
	defer span.End()

	id := token.ID
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate refresh token ID: %w", err)
		}
		id = generated.String()
	}

	scopes, err := jsonb(token.Scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scopes: %w", err)
	}

	row := s.db.Statement(ctx).
		Insert("refresh_tokens").
		Columns("id", "tenant_id", "session_id", "user_id", "client_id", "scopes", "rotating", "expires_at").
		Values(id, token.TenantID, token.SessionID, token.UserID, token.ClientID, scopes, token.Rotating, token.ExpiresAt).
		Suffix("RETURNING id, tenant_id, session_id, user_id, client_id, scopes, rotating, expires_at, created_at").
		QueryRowContext(ctx)

	created, err := scanRefreshToken(row.Scan)
	if err != nil {
		return nil, WrapForeignKeyError(err, "failed to insert refresh token")
	}

	return created, nil
}

func (s *Storage) RemoveRefreshToken(ctx context.Context, tenantID, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RemoveRefreshToken")
	defer span.End()

	return s.deleteByID(ctx, "refresh_tokens", tenantID, id)
}

func (s *Storage) deleteByID(ctx context.Context, table, tenantID, id string) (bool, error) {
	res, err := s.db.Statement(ctx).
		Delete(table).
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

// nullable maps the empty string to NULL for optional reference columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func scanLoginSession(scan func(dest ...interface{}) error) (*types.LoginSession, error) {
	var ls types.LoginSession
	var params []byte
	var sessionID *string

	if err := scan(&ls.ID, &ls.TenantID, &ls.CSRFToken, &params, &ls.State, &sessionID, &ls.ExpiresAt, &ls.CreatedAt); err != nil {
		return nil, err
	}

	if err := scanJSON(params, &ls.AuthParams); err != nil {
		return nil, err
	}
	if sessionID != nil {
		ls.SessionID = *sessionID
	}

	return &ls, nil
}

func scanSession(scan func(dest ...interface{}) error) (*types.Session, error) {
	var session types.Session
	var clientIDs []byte
	var loginSessionID *string

	if err := scan(&session.ID, &session.TenantID, &session.UserID, &clientIDs, &session.DeviceFingerprint, &loginSessionID, &session.ExpiresAt, &session.UsedAt, &session.CreatedAt); err != nil {
		return nil, err
	}

	if err := scanJSON(clientIDs, &session.ClientIDs); err != nil {
		return nil, err
	}
	if loginSessionID != nil {
		session.LoginSessionID = *loginSessionID
	}

	return &session, nil
}

func scanRefreshToken(scan func(dest ...interface{}) error) (*types.RefreshToken, error) {
	var token types.RefreshToken
	var scopes []byte

	if err := scan(&token.ID, &token.TenantID, &token.SessionID, &token.UserID, &token.ClientID, &scopes, &token.Rotating, &token.ExpiresAt, &token.CreatedAt); err != nil {
		return nil, err
	}

	if err := scanJSON(scopes, &token.Scopes); err != nil {
		return nil, err
	}

	return &token, nil
}
