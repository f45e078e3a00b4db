// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import "errors"

var (
	// ErrMissingBearerToken means the request carried no usable Authorization header.
	ErrMissingBearerToken = errors.New("missing bearer token")
	// ErrUnknownKeyID means the remote key set was fetched but does not contain the token's kid.
	ErrUnknownKeyID = errors.New("unknown key id")
	// ErrNoUsableKeys means neither the remote key set nor stored keys could verify the token.
	ErrNoUsableKeys = errors.New("no usable signing keys")
	// ErrInsufficientScope means the token is valid but grants none of the required scopes.
	ErrInsufficientScope = errors.New("insufficient scope")
)
