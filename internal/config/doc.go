// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// yinlan client.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (YINLAN_*), including those set by a .env file
//   - ~/.yinlan/config.toml (or the file named by YINLAN_CONFIG)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.New(cfg.BaseURL, store, api.WithTimeout(cfg.Timeout.Duration))
package config
