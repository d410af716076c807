// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shell.go - Interactive navigation shell for yinlan.
//
// The shell keeps one Navigator for its whole lifetime, so share mode and
// the current page persist between commands, and a forced login scheduled
// by the request pipeline after a 401/403 is visible when it fires.
//
// Commands:
//
//	go <path>, cd <path>   Navigate through the page guard
//	where, pwd             Show the current page
//	routes                 List known pages
//	whoami                 Show the session
//	login <username>       Log in (password prompted)
//	logout                 Clear the session
//	profile                Fetch the profile from the backend
//	help                   Show commands
//	exit, quit             Leave the shell

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/1186985905/YinLang/internal/config"
	"github.com/1186985905/YinLang/internal/router"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the shell's input source.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Close()
}

// historyEditor provides input history and line editing on a terminal.
type historyEditor struct {
	line        *liner.State
	historyFile string
}

func newHistoryEditor(historyFile string) *historyEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &historyEditor{line: line, historyFile: historyFile}
	e.loadHistory()
	return e
}

func (e *historyEditor) loadHistory() {
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line, recording non-empty input in the history.
func (e *historyEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

func (e *historyEditor) ReadPassword(prompt string) (string, error) {
	return e.line.PasswordPrompt(prompt)
}

// saveHistory persists history with owner-only permissions.
func (e *historyEditor) saveHistory() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = e.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (e *historyEditor) Close() {
	e.saveHistory()
	_ = e.line.Close()
}

// plainReader reads scripted input line by line.
type plainReader struct {
	p *prompter
}

func (r plainReader) ReadInput(prompt string) (string, error) { return r.p.Line(prompt) }

func (r plainReader) ReadPassword(prompt string) (string, error) { return r.p.Password(prompt) }

func (plainReader) Close() {}

// =============================================================================
// SHELL
// =============================================================================

// syncWriter serializes writes from the REPL and timer goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type shell struct {
	rt  *runtime
	app *App
	in  lineReader
	out io.Writer

	// navigating is set while a shell command navigates; results seen by
	// the observer outside of it came from a forced login.
	navigating atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newShellCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive navigation shell",
		Long: `Start an interactive shell that keeps one navigator alive.

Pages visited with "go" pass through the same guard as the web client.
When a backend call is rejected with 401 or 403 the session is cleared
and the shell is sent to the login page after the redirect delay.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sh := &shell{rt: rt, out: &syncWriter{w: rt.streams.Out}}

			app, err := rt.App(ctx, WithNavigationObserver(sh.observe))
			if err != nil {
				return err
			}
			sh.app = app
			if err := app.WatchSession(ctx); err != nil {
				rt.logger.Warn(err.Error())
			}

			if isTerminal(rt.streams.In) && liner.TerminalSupported() {
				sh.in = newHistoryEditor(historyPath())
			} else {
				sh.in = plainReader{p: newPrompter(rt.streams)}
			}
			defer sh.in.Close()

			return sh.run(ctx)
		},
	}
}

// historyPath returns ~/.yinlan/shell_history, or a temp file path.
func historyPath() string {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "shell_history")
}

// observe prints navigations the user did not type.
func (s *shell) observe(res router.Result) {
	if s.navigating.Load() {
		return
	}
	fmt.Fprintf(s.out, "\n%s session ended, now at %s\n", WarningStyle.Render("[redirect]"), res.Final.FullPath())
}

func (s *shell) run(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			s.mu.Lock()
			if s.cancel != nil {
				s.cancel()
				s.cancel = nil
				fmt.Fprintln(s.out, "\n"+WarningStyle.Render("[Cancelled]"))
			}
			s.mu.Unlock()
		}
	}()

	fmt.Fprintln(s.out, TitleStyle.Render("yinlan shell")+" "+DimStyle.Render("type 'help' for commands"))
	for {
		input, err := s.in.ReadInput(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) || errors.Is(err, ErrNoInput) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}

		cmdCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()

		more, err := s.exec(cmdCtx, input)

		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()

		if err != nil {
			fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if !more {
			return nil
		}
	}
}

func (s *shell) prompt() string {
	loc := s.app.Navigator.Current().FullPath()
	if s.app.Navigator.State().ShareMode {
		loc += " [share]"
	}
	return "yinlan:" + loc + "> "
}

// exec runs one shell line. It returns false when the shell should exit.
func (s *shell) exec(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return true, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "exit", "quit":
		return false, nil
	case "help", "?":
		s.help()
	case "go", "cd":
		if len(args) != 1 {
			return true, &UsageError{Field: "arguments", Reason: name + " expects one path"}
		}
		return true, s.navigate(args[0])
	case "where", "pwd":
		out := navigationOutput{
			Final:     s.app.Navigator.Current().FullPath(),
			ShareMode: s.app.Navigator.State().ShareMode,
		}
		m := s.app.Navigator.Guard().Table().Match(s.app.Navigator.Current())
		out.Route, out.Access = m.Descriptor.Name, m.Access().String()
		printNavigation(s.out, out)
	case "routes":
		t := newTable("NAME", "PATH", "ACCESS")
		for _, d := range s.app.Navigator.Guard().Table().Descriptors() {
			t.Row(d.Name, d.Path, d.Access.String())
		}
		t.Render(s.out)
	case "whoami":
		cur := s.app.Store.Current()
		if !cur.Valid {
			fmt.Fprintln(s.out, DimStyle.Render("not logged in"))
			break
		}
		role := ""
		if cur.Identity != nil {
			role = cur.Identity.Role
		}
		fmt.Fprintf(s.out, "%s (%s)\n", cur.Username(), orDash(role))
	case "login":
		if len(args) != 1 {
			return true, &UsageError{Field: "arguments", Reason: "login expects a username"}
		}
		return true, s.login(ctx, args[0])
	case "logout":
		if err := s.app.Store.Clear(ctx); err != nil {
			return true, err
		}
		fmt.Fprintln(s.out, RenderStatus("ok")+" logged out")
	case "profile":
		u, err := s.app.Service.Profile(ctx)
		if err != nil {
			return true, err
		}
		field(s.out, "Username", u.Username)
		field(s.out, "Role", orDash(u.Role))
		field(s.out, "Email", orDash(u.Email))
	default:
		return true, &UsageError{Field: "command", Value: name, Reason: "unknown, try 'help'"}
	}
	return true, nil
}

func (s *shell) navigate(raw string) error {
	s.navigating.Store(true)
	res, err := s.app.Navigator.Navigate(raw)
	s.navigating.Store(false)
	if err != nil {
		return err
	}
	printNavigation(s.out, toNavigationOutput(res, s.app.Navigator.State()))
	return nil
}

func (s *shell) login(ctx context.Context, username string) error {
	password, err := s.in.ReadPassword("Password: ")
	if err != nil {
		return err
	}
	res, err := s.app.Service.SignIn(ctx, s.app.Store, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Fprintf(s.out, "%s logged in as %s\n", RenderStatus("ok"), res.User.Username)

	// Leave the login page the way the login view does.
	cur := s.app.Navigator.Current()
	if cur.Path == s.app.Navigator.Guard().LoginPath() {
		return s.navigate(s.app.Navigator.Guard().RedirectTarget(cur).FullPath())
	}
	return nil
}

func (s *shell) help() {
	fmt.Fprintln(s.out, SectionStyle.Render("Commands"))
	for _, line := range [][2]string{
		{"go <path>", "navigate through the page guard"},
		{"where", "show the current page"},
		{"routes", "list known pages"},
		{"whoami", "show the session"},
		{"login <username>", "log in"},
		{"logout", "clear the session"},
		{"profile", "fetch the profile from the backend"},
		{"exit", "leave the shell"},
	} {
		field(s.out, line[0], line[1])
	}
}
