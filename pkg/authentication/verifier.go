// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
)

type JWTVerifier struct {
	keys   KeyResolverInterface
	parser *jwt.Parser

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (v *JWTVerifier) VerifyToken(ctx context.Context, tenantID, rawToken string) (*Claims, error) {
	ctx, span := v.tracer.Start(ctx, "authentication.JWTVerifier.VerifyToken")
	defer span.End()

	claims := new(Claims)
	_, err := v.parser.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}

		return v.keys.ResolveKey(ctx, tenantID, kid)
	})
	if err != nil {
		return nil, err
	}

	return claims, nil
}

func NewJWTVerifier(
	issuer string,
	keys KeyResolverInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{types.AlgRS256}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &JWTVerifier{
		keys:    keys,
		parser:  jwt.NewParser(opts...),
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}
