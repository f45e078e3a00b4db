// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"time"
)

type Tenant struct {
	ID           string          `db:"id" json:"id"`
	FriendlyName string          `db:"friendly_name" json:"friendly_name"`
	Audience     string          `db:"audience" json:"audience,omitempty"`
	SenderEmail  string          `db:"sender_email" json:"sender_email,omitempty"`
	SenderName   string          `db:"sender_name" json:"sender_name,omitempty"`
	Flags        map[string]bool `db:"flags" json:"flags,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type Client struct {
	ID                string    `db:"id" json:"id"`
	TenantID          string    `db:"tenant_id" json:"tenant_id"`
	Name              string    `db:"name" json:"name"`
	Secret            string    `db:"secret" json:"-"`
	Callbacks         []string  `db:"callbacks" json:"callbacks,omitempty"`
	AllowedLogoutURLs []string  `db:"allowed_logout_urls" json:"allowed_logout_urls,omitempty"`
	WebOrigins        []string  `db:"web_origins" json:"web_origins,omitempty"`
	Connections       []string  `db:"connections" json:"connections,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Connection identity across tenants is by Name, not ID. Control-plane
// fallback matches child connections against control-plane ones by Name.
type Connection struct {
	ID        string                 `db:"id" json:"id"`
	TenantID  string                 `db:"tenant_id" json:"tenant_id"`
	Name      string                 `db:"name" json:"name"`
	Strategy  string                 `db:"strategy" json:"strategy"`
	Options   map[string]interface{} `db:"options" json:"options,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const AlgRS256 = "RS256"

type SigningKey struct {
	Kid        string     `db:"kid" json:"kid"`
	TenantID   string     `db:"tenant_id" json:"tenant_id"`
	Algorithm  string     `db:"algorithm" json:"algorithm"`
	PublicKey  string     `db:"public_key" json:"public_key"`
	PrivateKey string     `db:"private_key" json:"-"`
	Current    bool       `db:"current" json:"current"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

const (
	LoginStatePending   = "pending"
	LoginStateCompleted = "completed"
)

// LoginSession is the transient record of an in-flight authorization attempt.
type LoginSession struct {
	ID         string                 `db:"id" json:"id"`
	TenantID   string                 `db:"tenant_id" json:"tenant_id"`
	CSRFToken  string                 `db:"csrf_token" json:"-"`
	AuthParams map[string]interface{} `db:"auth_params" json:"auth_params,omitempty"`
	State      string                 `db:"state" json:"state"`
	SessionID  string                 `db:"session_id" json:"session_id,omitempty"`
	ExpiresAt  time.Time              `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}

// Session is an authenticated browser or device session. LoginSessionID, when
// set, must reference an existing LoginSession.
type Session struct {
	ID                string     `db:"id" json:"id"`
	TenantID          string     `db:"tenant_id" json:"tenant_id"`
	UserID            string     `db:"user_id" json:"user_id"`
	ClientIDs         []string   `db:"client_ids" json:"client_ids,omitempty"`
	DeviceFingerprint string     `db:"device_fingerprint" json:"device_fingerprint,omitempty"`
	LoginSessionID    string     `db:"login_session_id" json:"login_session_id,omitempty"`
	ExpiresAt         time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt            *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// RefreshToken references a live session at creation time but may outlive the
// session's original expiry.
type RefreshToken struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ClientID  string    `db:"client_id" json:"client_id"`
	Scopes    []string  `db:"scopes" json:"scopes,omitempty"`
	Rotating  bool      `db:"rotating" json:"rotating"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CustomDomain struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Domain    string    `db:"domain" json:"domain"`
	Verified  bool      `db:"verified" json:"verified"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Role struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Permissions []string  `db:"permissions" json:"permissions,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
