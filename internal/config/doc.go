// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ragdesk.
//
// # Configuration Precedence
//
// Configuration is loaded from (highest precedence first):
//   - Environment variables (RAGDESK_*), including values read from .env
//   - ~/.ragdesk/config.toml
//   - ~/.ragdesk/config.json
//   - Built-in defaults
//
// RAGDESK_HOME moves the whole state directory, which also holds the
// preference file and the history database.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.NewClientWithConfig(&api.ClientConfig{
//	    BaseURL: cfg.Server.BaseURL,
//	    Timeout: cfg.Timeout(),
//	})
package config
