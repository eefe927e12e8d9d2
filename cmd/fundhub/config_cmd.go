// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fundhub/fundhub/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a config file",
		Long: `Check a YAML config file against the config schema, then load it with
the current environment and apply the semantic checks. FILE defaults to
--config, then to $XDG_CONFIG_HOME/fundhub/config.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigFile()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return oops.Code("CONFIG_FILE_REQUIRED").Errorf("no config file given; pass FILE or --config")
			}

			if err := config.ValidateFile(path); err != nil {
				return err
			}
			if _, err := config.Load(config.LoadOptions{File: path}); err != nil {
				return err
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}

	cmd.AddCommand(schema, validate)
	return cmd
}
