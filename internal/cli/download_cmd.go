// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1186985905/YinLang/internal/api"
	"github.com/1186985905/YinLang/internal/util"
)

type downloadOutput struct {
	Source      string `json:"source"`
	File        string `json:"file"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
}

func newDownloadCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "download <path|fileId> <file>",
		Short: "Download a backend file unmodified",
		Long: `Download a binary resource and write it to a file.

A first argument starting with "/" is a backend path; anything else is
an uploaded file id. Use "-" as the file to write to stdout.`,
		Example: `  yinlan download 7f3c2a report.pdf
  yinlan download /api/file/download/7f3c2a - > report.pdf`,
		Args: exactArgs(2, "path|fileId", "file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}

			source, dest := args[0], args[1]
			var bin *api.Binary
			if strings.HasPrefix(source, "/") {
				bin, err = app.Service.Download(ctx, source)
			} else {
				bin, err = app.Service.DownloadFile(ctx, source)
			}
			if err != nil {
				return err
			}

			if dest == "-" {
				_, err := rt.streams.Out.Write(bin.Body)
				return err
			}
			if err := util.WriteFileAtomic(dest, bin.Body, 0644, 0755); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}

			out := downloadOutput{Source: source, File: dest, ContentType: bin.ContentType, Bytes: len(bin.Body)}
			return rt.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s wrote %d bytes to %s %s\n", RenderStatus("ok"), out.Bytes, out.File,
					DimStyle.Render("("+orDash(out.ContentType)+")"))
			})
		},
	}
}
