// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "go.uber.org/zap"

func nopLogger() *zap.Logger { return zap.NewNop() }
