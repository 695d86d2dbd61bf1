package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xinpianchang/nextgo/internal/config"
	"github.com/xinpianchang/nextgo/internal/errors"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}
	cmd.AddCommand(configValidateCmd(), configInitCmd())
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check the configuration file in dir (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%s is valid", cfg.Path())
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a configuration file with the default settings",
		Long: `Write nextgo.yaml (or nextgo.json with --format=json) holding every
default setting, ready to be edited.

Examples:
  nextgo config init
  nextgo config init --format=json ./site`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			var name string
			switch format {
			case "yaml":
				name = "nextgo.yaml"
			case "json":
				name = "nextgo.json"
			default:
				return errors.New("E300").
					WithDetail("--format must be yaml or json, got " + format)
			}

			if existing, err := config.Find(dir); err == nil && !force {
				return errors.New("E105").
					WithDetail(existing + " already exists.").
					WithSuggestion("Pass --force to overwrite it.")
			}

			path := filepath.Join(dir, name)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New("E105").Wrap(err)
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Wrote %s", path)
			info(out, "Edit it, then run 'nextgo serve'.")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "File format: yaml or json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")

	return cmd
}
