// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"encoding/json"

	"github.com/canonical/identity-provider/internal/db"
	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring"
	"github.com/canonical/identity-provider/internal/tracing"
)

type Storage struct {
	db db.DBClientInterface

	logger  logging.LoggerInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
}

func NewStorage(c db.DBClientInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Storage {
	s := new(Storage)

	s.db = c

	s.logger = logger
	s.tracer = tracer
	s.monitor = monitor

	return s
}

// NewAdapters exposes a single Storage through the per-entity adapter
// interfaces so that decorators can wrap entities independently.
func NewAdapters(s *Storage) Adapters {
	return Adapters{
		Tenants:       s,
		CustomDomains: s,
		Clients:       s,
		Connections:   s,
		Keys:          s,
		LoginSessions: s,
		Sessions:      s,
		RefreshTokens: s,
		Roles:         s,
	}
}

// jsonb marshals a value for a jsonb column, mapping nil to SQL-friendly "null".
func jsonb(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// scanJSON unmarshals a jsonb column into dst, tolerating NULL.
func scanJSON(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
