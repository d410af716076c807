// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/1186985905/YinLang/internal/backend"
)

type shareOutput struct {
	ShareID  string               `json:"shareId"`
	Link     string               `json:"link"`
	Session  *backend.ChatSession `json:"session"`
	Messages []backend.Message    `json:"messages"`
}

func newShareCommand(rt *runtime) *cobra.Command {
	var (
		raw     bool
		copyURL bool
	)

	cmd := &cobra.Command{
		Use:   "share <shareId>",
		Short: "Open a shared conversation",
		Long: `Open a shared conversation. No login is needed.

The share page is entered through the page guard first, which switches
the navigator into share mode, then the conversation is fetched from
the public share endpoints.`,
		Args: exactArgs(1, "shareId"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			shareID := args[0]

			if _, err := app.Navigator.Navigate("/share/" + url.PathEscape(shareID)); err != nil {
				return fmt.Errorf("open share page: %w", err)
			}

			sess, err := app.Service.SharedSession(ctx, shareID)
			if err != nil {
				return err
			}
			msgs, err := app.Service.SharedMessages(ctx, shareID)
			if err != nil {
				return err
			}

			out := shareOutput{
				ShareID:  shareID,
				Link:     app.Config.BaseURL + "/share/" + url.PathEscape(shareID),
				Session:  sess,
				Messages: msgs,
			}
			if copyURL {
				if err := copyToClipboard(out.Link); err != nil {
					rt.progress("%s could not copy link: %v", RenderStatus("warn"), err)
				} else {
					rt.progress("%s link copied to clipboard", RenderStatus("ok"))
				}
			}

			return rt.emit(cmd, out, func(w io.Writer) {
				title := backend.DefaultSessionTitle
				if sess != nil && sess.Title != "" {
					title = sess.Title
				}
				fmt.Fprintln(w, TitleStyle.Render(title))
				fmt.Fprintln(w, DimStyle.Render(out.Link))
				fmt.Fprintln(w, RenderSeparator())
				printTranscript(w, msgs, raw)
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print message content without markdown rendering")
	cmd.Flags().BoolVar(&copyURL, "copy", false, "copy the share link to the clipboard")
	return cmd
}
