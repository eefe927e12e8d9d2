// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fundhub/fundhub/internal/auth"
	authpg "github.com/fundhub/fundhub/internal/auth/postgres"
	"github.com/fundhub/fundhub/internal/config"
	"github.com/fundhub/fundhub/internal/logging"
	"github.com/fundhub/fundhub/internal/observability"
	"github.com/fundhub/fundhub/internal/project"
	projectpg "github.com/fundhub/fundhub/internal/project/postgres"
	"github.com/fundhub/fundhub/internal/store"
	"github.com/fundhub/fundhub/internal/web"
)

// serveFlagKeys maps serve flags to config keys.
var serveFlagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"auto-migrate": "database.auto_migrate",
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server together with the metrics and health
listener and the expired session sweeper.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), serveFlagKeys)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("addr", defaults.Server.Addr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().Bool("auto-migrate", defaults.Database.AutoMigrate, "apply pending migrations before serving")

	return cmd
}

// runServeWithDeps runs the server until ctx is cancelled or a listener
// fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "fundhub",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
	})

	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting fundhub",
		"version", version,
		"addr", cfg.Server.Addr,
		"auto_migrate", cfg.Database.AutoMigrate)

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, store.ConnectOptions{
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		RetryAttempts:  cfg.Database.ConnectRetries,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	// Start observability first so auth components can record into its registry.
	var (
		obsServer ObservabilityServer
		metrics   *observability.Metrics
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, pool.Ping, logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		metrics = obsServer.Metrics()
	}

	app, err := buildApp(cfg, pool, metrics, logger)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.Code("SERVE_FAILED").
			With("operation", "listen").
			With("addr", cfg.Server.Addr).
			Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           app.router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	httpErrCh := make(chan error, 1)
	go func() {
		defer close(httpErrCh)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			httpErrCh <- serveErr
		}
	}()

	if app.sweeper != nil {
		app.sweeper.Start(ctx)
	}

	cmd.Printf("Fundhub listening on %s\n", listener.Addr().String())
	logger.InfoContext(ctx, "fundhub ready", "addr", listener.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-httpErrCh:
		if ok && err != nil {
			serveErr = oops.Code("SERVE_FAILED").With("operation", "serve http").Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

type app struct {
	router  http.Handler
	sweeper *auth.Sweeper
}

// buildApp wires repositories, services and the router on top of pool.
// A nil metrics disables instrumentation.
func buildApp(cfg *config.Config, pool Pool, metrics *observability.Metrics, logger *slog.Logger) (*app, error) {
	var authMetrics auth.Metrics
	var requestMetrics web.RequestMetrics
	if metrics != nil {
		authMetrics = metrics
		requestMetrics = metrics
	}

	sessions, err := auth.NewSessionManager(authpg.NewSessionRepository(pool),
		auth.WithDefaultTTL(cfg.Session.TTL),
		auth.WithSessionLogger(logger),
		auth.WithSessionMetrics(authMetrics))
	if err != nil {
		return nil, err
	}
	identities := authpg.NewIdentityRepository(pool)

	authService, err := auth.NewService(identities, sessions,
		auth.NewArgon2idHasherWithParams(cfg.Argon2Params()),
		auth.WithLogger(logger),
		auth.WithMetrics(authMetrics),
		auth.WithSessionTTL(cfg.Session.TTL))
	if err != nil {
		return nil, err
	}
	authorizer, err := auth.NewAuthorizer(sessions, identities, logger)
	if err != nil {
		return nil, err
	}
	projects, err := project.NewService(projectpg.NewRepository(pool), project.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	var sweeper *auth.Sweeper
	if cfg.Session.SweepInterval > 0 {
		sweeper, err = auth.NewSweeper(sessions, cfg.Session.SweepInterval, logger)
		if err != nil {
			return nil, err
		}
	}

	router := web.NewRouter(web.RouterDeps{
		Auth:       authService,
		Sessions:   sessions,
		Authorizer: authorizer,
		Projects:   projects,
		Tokens: web.TokenSource{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.CookieSecure,
		},
		RevealUnknownUser: cfg.Auth.RevealUnknownUser,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		Health:            pool.Ping,
		Metrics:           requestMetrics,
		Logger:            logger,
	})

	return &app{router: router, sweeper: sweeper}, nil
}

func autoMigrate(dsn string, factory func(string) (AutoMigrator, error), logger *slog.Logger) error {
	migrator, err := factory(dsn)
	if err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	logger.Info("applying pending migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}

func stopObservability(obsServer ObservabilityServer, cfg *config.Config, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error arrives, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
