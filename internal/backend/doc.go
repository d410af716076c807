// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend wraps the management backend's HTTP endpoints in typed
// calls. Every call goes through an api.Client, so failures arrive as
// *api.Error already reported to the user.
package backend
