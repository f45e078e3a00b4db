package config

import (
	"time"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"true"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port int `envconfig:"port" default:"8080"`

	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	// Remote key set used to verify bearer tokens. When only the issuer is
	// set, the JWKS URL is discovered from its well-known configuration.
	// Verification falls back to tenant signing keys held in storage when
	// the remote set is unreachable.
	OIDCIssuer       string        `envconfig:"oidc_issuer"`
	JWKSURL          string        `envconfig:"jwks_url"`
	JWKSFetchTimeout time.Duration `envconfig:"jwks_fetch_timeout" default:"5s"`

	TenantHeaderName string `envconfig:"tenant_header_name" default:"X-Tenant-Id"`

	ControlPlaneTenantID string `envconfig:"control_plane_tenant_id"`
	ControlPlaneClientID string `envconfig:"control_plane_client_id"`

	CacheEnabled         bool          `envconfig:"cache_enabled" default:"true"`
	CacheTTL             time.Duration `envconfig:"cache_ttl" default:"5m"`
	CacheMaxEntries      int           `envconfig:"cache_max_entries" default:"1000"`
	CacheCleanupInterval time.Duration `envconfig:"cache_cleanup_interval" default:"1m"`
	CacheKeyPrefix       string        `envconfig:"cache_key_prefix"`
	RedisURL             string        `envconfig:"redis_url"`

	SessionReaperInterval time.Duration `envconfig:"session_reaper_interval" default:"1h"`
}
