// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/fundhub/fundhub/internal/observability"
	"github.com/fundhub/fundhub/internal/store"
)

// Pool is the database handle used by the commands. *pgxpool.Pool
// implements it.
type Pool interface {
	store.DB
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator applies pending migrations at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Migrator is the migration surface used by the migrate command.
// *store.Migrator implements it.
type Migrator interface {
	AutoMigrator
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, dsn string, opts store.ConnectOptions) (Pool, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(dsn string) (AutoMigrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, checker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ListenerFactory binds the public HTTP listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = defaultPoolFactory
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(dsn string) (AutoMigrator, error) {
			return store.NewMigrator(dsn)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, checker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, checker, logger)
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	return &out
}

func defaultPoolFactory(ctx context.Context, dsn string, opts store.ConnectOptions) (Pool, error) {
	return store.Connect(ctx, dsn, opts)
}

// CommandDeps contains injectable dependencies for the one-shot
// migrate and sessions commands.
type CommandDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, dsn string, opts store.ConnectOptions) (Pool, error)

	// MigratorFactory creates a migrator.
	// Default: store.NewMigrator
	MigratorFactory func(dsn string) (Migrator, error)
}

func (d *CommandDeps) withDefaults() *CommandDeps {
	out := CommandDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = defaultPoolFactory
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(dsn string) (Migrator, error) {
			return store.NewMigrator(dsn)
		}
	}
	return &out
}
