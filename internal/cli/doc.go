// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the yinlan terminal client.
//
// The client is a thin console over the YinLan backend. Every backend call
// goes through one api.Client, every view change goes through one
// router.Navigator, and the authentication state lives in one
// session.Store persisted by the configured repository.
//
// # Key Types
//
//   - App: composition root wiring config, logger, store, pipeline, guard
//     and stream dialer
//   - IOStreams: the reader and writers commands use instead of os.Std*
//   - JSONResponse: machine-readable envelope printed under --json
//
// # Usage
//
//	code := cli.Execute(ctx, os.Args[1:], cli.StdStreams())
//	os.Exit(code)
//
// # Commands Overview
//
// Session:
//   - login, logout, status
//
// Navigation:
//   - navigate: evaluate one navigation against the route guard
//   - shell: interactive REPL holding a navigator across commands
//
// Backend:
//   - chat sessions|new|messages|send|stream|rename|delete
//   - share, users, departments, models, download
//
// Local:
//   - config show|path|init
//
// All data commands support --json.
package cli
