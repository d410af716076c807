// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat_cmd.go - chat session commands.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1186985905/YinLang/internal/backend"
	"github.com/1186985905/YinLang/internal/stream"
)

func newChatCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Manage chat sessions and send messages",
	}
	cmd.AddCommand(
		newChatSessionsCommand(rt),
		newChatNewCommand(rt),
		newChatMessagesCommand(rt),
		newChatSendCommand(rt),
		newChatStreamCommand(rt),
		newChatRenameCommand(rt),
		newChatDeleteCommand(rt),
	)
	return cmd
}

// authedApp returns the App, failing fast when no session is stored.
func (rt *runtime) authedApp(ctx context.Context) (*App, error) {
	app, err := rt.App(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.requireSession(); err != nil {
		return nil, err
	}
	return app, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

func newChatSessionsCommand(rt *runtime) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.authedApp(ctx)
			if err != nil {
				return err
			}
			var uid *int64
			if cmd.Flags().Changed("user") {
				uid = &userID
			}
			sessions, err := app.Service.ListSessions(ctx, uid)
			if err != nil {
				return err
			}
			return rt.emit(cmd, sessions, func(w io.Writer) {
				t := newTable("ID", "TITLE", "MODEL", "UPDATED")
				for _, s := range sessions {
					t.Row(s.ID, s.Title, orDash(s.DefaultModelType), orDash(s.UpdatedAt))
				}
				t.Render(w)
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "only sessions of this user id")
	return cmd
}

func newChatNewCommand(rt *runtime) *cobra.Command {
	var (
		modelType string
		userID    int64
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a chat session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.authedApp(ctx)
			if err != nil {
				return err
			}
			var uid *int64
			if cmd.Flags().Changed("user") {
				uid = &userID
			}
			s, err := app.Service.CreateSession(ctx, modelType, uid)
			if err != nil {
				return err
			}
			return rt.emit(cmd, s, func(w io.Writer) {
				fmt.Fprintf(w, "%s created session %s\n", RenderStatus("ok"), s.ID)
				field(w, "Title", s.Title)
				field(w, "Model", orDash(s.DefaultModelType))
			})
		},
	}
	cmd.Flags().StringVar(&modelType, "model", "", "default model type for the session")
	cmd.Flags().Int64Var(&userID, "user", 0, "owner user id")
	return cmd
}

// =============================================================================
// MESSAGES
// =============================================================================

func newChatMessagesCommand(rt *runtime) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "messages <sessionId>",
		Short: "Show the messages of a session",
		Args:  exactArgs(1, "sessionId"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.authedApp(ctx)
			if err != nil {
				return err
			}
			msgs, err := app.Service.Messages(ctx, args[0])
			if err != nil {
				return err
			}
			return rt.emit(cmd, msgs, func(w io.Writer) {
				printTranscript(w, msgs, raw)
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print message content without markdown rendering")
	return cmd
}

// printTranscript writes a conversation, rendering markdown unless raw.
func printTranscript(w io.Writer, msgs []backend.Message, raw bool) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("(no messages)"))
		return
	}
	width := terminalWidth(w)
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := renderRole(m.Role)
		if m.ModelName != "" {
			header += " " + DimStyle.Render("("+m.ModelName+")")
		}
		if m.CreatedAt != "" {
			header += " " + DimStyle.Render(m.CreatedAt)
		}
		fmt.Fprintln(w, header)
		if raw {
			fmt.Fprintln(w, m.Content)
			continue
		}
		fmt.Fprint(w, strings.TrimLeft(renderMarkdown(m.Content, width), "\n"))
	}
}

// =============================================================================
// SEND
// =============================================================================

// chatFlags are the model selectors shared by send and stream.
type chatFlags struct {
	modelType string
	modelName string
}

func (f *chatFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.modelType, "model-type", "", "model type, e.g. deepseek, openai, qianwen")
	cmd.Flags().StringVar(&f.modelName, "model-name", "", "model name within the type")
}

func (f *chatFlags) request(sessionID string, words []string) backend.ChatRequest {
	return backend.ChatRequest{
		SessionID: sessionID,
		Message:   strings.Join(words, " "),
		ModelType: f.modelType,
		ModelName: f.modelName,
	}
}

func newChatSendCommand(rt *runtime) *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "send <sessionId> <message...>",
		Short: "Send a message and wait for the full reply",
		Args:  minArgs(2, "sessionId", "message"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.authedApp(ctx)
			if err != nil {
				return err
			}
			resp, err := app.Service.SendMessage(ctx, flags.request(args[0], args[1:]))
			if err != nil {
				return err
			}
			return rt.emit(cmd, resp, func(w io.Writer) {
				printTranscript(w, []backend.Message{{
					Role:      "assistant",
					Content:   resp.Content,
					ModelName: resp.ModelName,
				}}, false)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// =============================================================================
// STREAM
// =============================================================================

type streamOutput struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
}

func newChatStreamCommand(rt *runtime) *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "stream <sessionId> <message...>",
		Short: "Send a message and print the reply as it streams",
		Long: `Send a message and print the reply as it streams.

The message is submitted through the request pipeline, then the reply
is read from the session's event stream until the backend marks it
done. Error events are printed and end the command with an error.`,
		Args: minArgs(2, "sessionId", "message"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.authedApp(ctx)
			if err != nil {
				return err
			}
			sessionID := args[0]
			if err := app.Service.StartStream(ctx, flags.request(sessionID, args[1:])); err != nil {
				return err
			}

			ch, err := app.Dialer.Open(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("open stream: %w", err)
			}
			defer ch.Close()

			if rt.opts.jsonOutput {
				content, err := ch.Collect(ctx)
				if err != nil {
					return err
				}
				return rt.emit(cmd, streamOutput{SessionID: sessionID, Content: content, Completed: ch.Completed()}, nil)
			}
			return printStream(ctx, rt.streams.Out, ch)
		},
	}
	flags.register(cmd)
	return cmd
}

// printStream copies message events to w as they arrive.
func printStream(ctx context.Context, w io.Writer, ch *stream.Channel) error {
	fmt.Fprintln(w, renderRole("assistant"))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch.Events():
			if !ok {
				fmt.Fprintln(w)
				err := ch.Err()
				if err == nil && !ch.Completed() {
					err = stream.ErrIncomplete
				}
				if err != nil && !errors.Is(err, stream.ErrClosed) {
					return fmt.Errorf("stream: %w", err)
				}
				return nil
			}
			if ev.IsError() {
				fmt.Fprintln(w)
				return &stream.RemoteError{Message: ev.Data}
			}
			if ev.Name == stream.EventMessage {
				fmt.Fprint(w, ev.Data)
			}
		}
	}
}

// =============================================================================
// RENAME / DELETE
// =============================================================================

func newChatRenameCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <sessionId> <title...>",
		Short: "Rename a chat session",
		Args:  minArgs(2, "sessionId", "title"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.authedApp(ctx)
			if err != nil {
				return err
			}
			s, err := app.Service.RenameSession(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return rt.emit(cmd, s, func(w io.Writer) {
				fmt.Fprintf(w, "%s renamed %s to %s\n", RenderStatus("ok"), args[0], strconv.Quote(s.Title))
			})
		},
	}
}

func newChatDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sessionId>",
		Short: "Delete a chat session and its messages",
		Args:  exactArgs(1, "sessionId"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.authedApp(ctx)
			if err != nil {
				return err
			}
			if err := app.Service.DeleteSession(ctx, args[0]); err != nil {
				return err
			}
			return rt.emit(cmd, map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "%s deleted session %s\n", RenderStatus("ok"), args[0])
			})
		},
	}
}
