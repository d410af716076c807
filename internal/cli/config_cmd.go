// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/1186985905/YinLang/internal/config"
)

func newConfigCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after the file, .env and YINLAN_*
environment overrides have been applied.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.emit(cmd, rt.cfg, func(w io.Writer) {
				fmt.Fprintln(w, DimStyle.Render("# "+rt.cfgPath))
				if err := toml.NewEncoder(w).Encode(rt.cfg); err != nil {
					fmt.Fprintf(w, "# encode failed: %v\n", err)
				}
			})
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.emit(cmd, map[string]string{"path": rt.cfgPath}, func(w io.Writer) {
				fmt.Fprintln(w, rt.cfgPath)
			})
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(rt.cfgPath); err == nil && !force {
				return &UsageError{Field: "config", Value: rt.cfgPath, Reason: "file exists, use --force to overwrite"}
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return &ConfigError{Err: err}
			}

			cfg := config.Default()
			if cmd.Flags().Changed("base-url") {
				cfg.BaseURL = rt.cfg.BaseURL
			}
			if err := config.Save(cfg, rt.cfgPath); err != nil {
				return &ConfigError{Err: err}
			}
			return rt.emit(cmd, map[string]string{"path": rt.cfgPath}, func(w io.Writer) {
				fmt.Fprintf(w, "%s wrote %s\n", RenderStatus("ok"), rt.cfgPath)
			})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}
