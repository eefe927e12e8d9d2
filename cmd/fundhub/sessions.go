// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/fundhub/fundhub/internal/auth"
	authpg "github.com/fundhub/fundhub/internal/auth/postgres"
	"github.com/fundhub/fundhub/internal/logging"
	"github.com/fundhub/fundhub/internal/store"
)

// NewSessionsCmd creates the sessions subcommand.
func NewSessionsCmd() *cobra.Command {
	return newSessionsCmd(nil)
}

func newSessionsCmd(deps *CommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions once",
		Long: `Delete every expired session and report how many were removed.
Expired sessions are rejected regardless; sweeping only reclaims storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, deps.withDefaults())
		},
	}

	cmd.AddCommand(sweep)
	return cmd
}

func runSweep(cmd *cobra.Command, deps *CommandDeps) error {
	cfg, err := loadConfig(nil, nil)
	if err != nil {
		return err
	}
	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := logging.Setup(logging.Options{
		Service: "fundhub",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, store.ConnectOptions{
		MaxConns:       1,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		RetryAttempts:  cfg.Database.ConnectRetries,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	sessions, err := auth.NewSessionManager(authpg.NewSessionRepository(pool), auth.WithSessionLogger(logger))
	if err != nil {
		return err
	}
	n, err := sessions.Sweep(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Removed %d expired session(s)\n", n)
	return nil
}
