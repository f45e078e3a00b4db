// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/canonical/identity-provider/internal/cache"
	"github.com/canonical/identity-provider/internal/config"
	"github.com/canonical/identity-provider/internal/db"
	"github.com/canonical/identity-provider/internal/hooks"
	"github.com/canonical/identity-provider/internal/logging"
	"github.com/canonical/identity-provider/internal/monitoring/prometheus"
	"github.com/canonical/identity-provider/internal/storage"
	"github.com/canonical/identity-provider/internal/storage/fallback"
	"github.com/canonical/identity-provider/internal/tracing"
	"github.com/canonical/identity-provider/internal/types"
	"github.com/canonical/identity-provider/pkg/authentication"
	"github.com/canonical/identity-provider/pkg/keys"
	"github.com/canonical/identity-provider/pkg/reaper"
	"github.com/canonical/identity-provider/pkg/tenancy"
	"github.com/canonical/identity-provider/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	logger.Debugf("env vars: %v", specs)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("identity-provider", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}
	dbClient, err := db.NewDBClient(dbConfig, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()

	s := storage.NewStorage(dbClient, tracer, monitor, logger)
	adapters := storage.NewAdapters(s)

	adapters = fallback.Wrap(
		adapters,
		fallback.Config{
			ControlPlaneTenantID: specs.ControlPlaneTenantID,
			ControlPlaneClientID: specs.ControlPlaneClientID,
		},
		tracer,
		logger,
	)

	if specs.CacheEnabled {
		store, closeStore, err := newCacheStore(specs, logger)
		if err != nil {
			return fmt.Errorf("failed to create cache store: %v", err)
		}
		defer closeStore()

		proxy := cache.NewProxy(store, cache.Policy{
			DefaultTTL: specs.CacheTTL,
			Entities:   []string{"tenants", "customDomains", "clients", "connections", "keys"},
			KeyPrefix:  specs.CacheKeyPrefix,
		}, tracer, logger)

		adapters = proxy.WrapAdapters(adapters)
		logger.Info("Adapter caching is enabled")
	}

	clientHooks := hooks.NewChain(
		[]hooks.EntityHooks[types.Client]{hooks.ClientSecretHook()},
		tracer,
		logger,
	)
	adapters.Clients = hooks.WrapClients(adapters.Clients, clientHooks, &adapters)

	verifier, err := authentication.NewJWTAuthenticator(
		context.Background(),
		specs.OIDCIssuer,
		specs.JWKSURL,
		specs.JWKSFetchTimeout,
		adapters.Keys,
		specs.ControlPlaneTenantID,
		tracer,
		monitor,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %v", err)
	}

	registry := authentication.NewRouteRegistry()
	authMiddleware := authentication.NewMiddleware(verifier, registry, tracer, monitor, logger)
	tenancyMiddleware := tenancy.NewMiddleware(
		adapters.Tenants,
		adapters.CustomDomains,
		specs.TenantHeaderName,
		tracer,
		monitor,
		logger,
	)

	keysService := keys.NewService(adapters.Keys, tracer, monitor, logger)
	reaperService := reaper.NewService(
		adapters.LoginSessions,
		adapters.Sessions,
		adapters.RefreshTokens,
		tracer,
		monitor,
		logger,
	)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go reaperService.Run(reaperCtx, specs.SessionReaperInterval)

	router := web.NewRouter(
		web.RouterConfig{
			Adapters:          adapters,
			DBClient:          dbClient,
			TenancyMiddleware: tenancyMiddleware,
			AuthMiddleware:    authMiddleware,
			Registry:          registry,
			Keys:              keysService,
			Reaper:            reaperService,
		},
		tracer,
		monitor,
		logger,
	)
	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	return serverError
}

func newCacheStore(specs *config.EnvSpec, logger logging.LoggerInterface) (cache.CacheAdapter, func(), error) {
	if specs.RedisURL != "" {
		logger.Info("Using redis cache store")

		store, err := cache.NewRedisCache(specs.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	}

	logger.Info("Using in-memory cache store")
	store := cache.NewInMemoryCache(specs.CacheMaxEntries, specs.CacheCleanupInterval, logger)

	return store, store.Close, nil
}

func main() {
	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
