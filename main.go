// yinlan - terminal client for the YinLan AI assistant platform.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"

	"github.com/1186985905/YinLang/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	cli.Version = Version + " (" + GitCommit + ")"

	os.Exit(cli.Execute(context.Background(), os.Args[1:], cli.StdStreams()))
}
