// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fundhub/fundhub/internal/config"
	"github.com/fundhub/fundhub/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Fundhub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fundhub",
		Short: "Fundhub - crowdfunding accounts and projects",
		Long: `Fundhub serves account registration, session-based login and
crowdfunding projects over a JSON HTTP API backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// resolveConfigFile returns --config, or the XDG default file when the flag
// is unset and that file exists.
func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.DefaultConfigFile()
}

// loadConfig layers defaults, the config file, the environment and the
// changed flags named in flagKeys.
func loadConfig(flags *pflag.FlagSet, flagKeys map[string]string) (*config.Config, error) {
	path, err := resolveConfigFile()
	if err != nil {
		return nil, err
	}
	return config.Load(config.LoadOptions{
		File:     path,
		Flags:    flags,
		FlagKeys: flagKeys,
	})
}
