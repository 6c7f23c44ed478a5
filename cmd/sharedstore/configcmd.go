package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vango-dev/sharedstore/internal/config"
	"github.com/vango-dev/sharedstore/internal/errors"
	"github.com/vango-dev/sharedstore/internal/orderform"
)

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check sharedstore.json",
	}

	cmd.AddCommand(
		configInitCmd(configPath),
		configShowCmd(configPath),
		configValidateCmd(configPath),
	)

	return cmd
}

func configInitCmd(configPath *string) *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default sharedstore.json",
		Long: `Write a sharedstore.json with default settings.

Examples:
  sharedstore config init
  sharedstore config init --dir=./demo
  sharedstore config init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if path == "" {
				path = filepath.Join(dir, config.ConfigFileName)
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write sharedstore.json to")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.CodeConfigExists).WithDetail(path + " already exists.")
	}

	cfg := config.New()
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		cfg.Name = filepath.Base(abs)
	}
	cfg.Store.Initial = map[string]any{orderform.KeyClicked: false}

	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success(cmd.OutOrStdout(), "Wrote %s", path)
	return nil
}

func configShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, found, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !found {
				warn(cmd.ErrOrStderr(), "No sharedstore.json found, showing defaults")
			}

			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func configValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check sharedstore.json for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, found, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !found {
				return errors.New(errors.CodeConfigNotFound)
			}

			success(cmd.OutOrStdout(), "%s is valid", cfg.Path())
			return nil
		},
	}
}
