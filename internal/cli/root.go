// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1186985905/YinLang/internal/config"
	"github.com/1186985905/YinLang/internal/logging"
	"github.com/1186985905/YinLang/internal/notify"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// rootOptions are the persistent flags.
type rootOptions struct {
	configPath string
	baseURL    string
	logLevel   string
	jsonOutput bool
	noColor    bool
}

// runtime carries what every command shares: streams, flags, the loaded
// config and logger, and the lazily built App.
type runtime struct {
	streams IOStreams
	opts    rootOptions
	appOpts []AppOption

	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	app     *App
}

// NewRootCommand builds the yinlan command tree. appOpts are passed to
// NewApp and let tests replace transport, repository and scheduler.
func NewRootCommand(streams IOStreams, appOpts ...AppOption) *cobra.Command {
	root, _ := newRoot(streams, appOpts...)
	return root
}

func newRoot(streams IOStreams, appOpts ...AppOption) (*cobra.Command, *runtime) {
	rt := &runtime{streams: streams, appOpts: appOpts, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "yinlan",
		Short: "yinlan - terminal client for the YinLan AI assistant platform",
		Long: `yinlan talks to a YinLan backend from the terminal.

It keeps one login session on disk, routes every call through a single
request pipeline, and applies the same page guard as the web client:
admin pages need an admin, everything but login and shared
conversations needs a session.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.ErrOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Field: "flags", Reason: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&rt.opts.configPath, "config", "", "config file (default $YINLAN_CONFIG or ~/.yinlan/config.toml)")
	pf.StringVar(&rt.opts.baseURL, "base-url", "", "backend origin, overrides base_url")
	pf.StringVar(&rt.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&rt.opts.jsonOutput, "json", false, "print one JSON response on stdout")
	pf.BoolVar(&rt.opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newStatusCommand(rt),
		newNavigateCommand(rt),
		newRoutesCommand(rt),
		newShellCommand(rt),
		newChatCommand(rt),
		newShareCommand(rt),
		newUsersCommand(rt),
		newDepartmentsCommand(rt),
		newModelsCommand(rt),
		newDownloadCommand(rt),
		newConfigCommand(rt),
	)
	return root, rt
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, streams IOStreams, appOpts ...AppOption) int {
	root, rt := newRoot(streams, appOpts...)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	rt.close()
	if err == nil {
		return ExitSuccess
	}

	w := streams.ErrOut
	if rt.opts.jsonOutput {
		w = streams.Out
	}
	name := root.Name()
	if cmd != nil {
		name = cmd.CommandPath()
	}
	DisplayError(w, err, rt.opts.jsonOutput, name)
	if ExitCode(err) == ExitAuthError && !rt.opts.jsonOutput {
		fmt.Fprintln(streams.ErrOut, DimStyle.Render("Run 'yinlan login' to start a new session."))
	}
	return ExitCode(err)
}

// =============================================================================
// RUNTIME
// =============================================================================

// init loads configuration and the logger. It runs before every command.
func (rt *runtime) init(cmd *cobra.Command) error {
	if rt.opts.noColor {
		ForceColorsEnabled(false)
	}

	var (
		cfg *config.Config
		err error
	)
	if rt.opts.configPath != "" {
		rt.cfgPath = rt.opts.configPath
		cfg, err = config.LoadFrom(rt.cfgPath)
	} else {
		if rt.cfgPath, err = config.Path(); err != nil {
			return &ConfigError{Err: err}
		}
		cfg, err = config.Load()
	}
	if err != nil {
		return &ConfigError{Err: err}
	}

	if cmd.Flags().Changed("base-url") {
		if cfg.StreamBaseURL == cfg.BaseURL {
			cfg.StreamBaseURL = ""
		}
		cfg.BaseURL = rt.opts.baseURL
		if err := cfg.SetDefaults(); err != nil {
			return &ConfigError{Err: err}
		}
		if err := cfg.Validate(); err != nil {
			return &ConfigError{Err: fmt.Errorf("invalid config: %w", err)}
		}
	}
	if rt.opts.logLevel != "" {
		cfg.Log.Level = rt.opts.logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return &ConfigError{Err: err}
	}
	rt.cfg = cfg
	rt.logger = logger
	logger.Debug("config loaded",
		zap.String("path", rt.cfgPath),
		zap.String("base_url", cfg.BaseURL),
		zap.String("storage", cfg.Storage.Driver))
	return nil
}

// App builds the App on first use. extra options apply only to that
// first build.
func (rt *runtime) App(ctx context.Context, extra ...AppOption) (*App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	if rt.cfg == nil {
		return nil, &ConfigError{Err: fmt.Errorf("configuration not loaded")}
	}
	opts := append([]AppOption{
		WithAppNotifier(notify.NewConsole(rt.streams.ErrOut, !ColorsEnabled())),
	}, rt.appOpts...)
	opts = append(opts, extra...)
	app, err := NewApp(ctx, rt.cfg, rt.logger, opts...)
	if err != nil {
		return nil, err
	}
	rt.app = app
	return app, nil
}

// close releases the App and flushes the logger. Safe to call twice.
func (rt *runtime) close() {
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			rt.logger.Warn("close app", zap.Error(err))
		}
		rt.app = nil
	}
	_ = rt.logger.Sync()
}

// emit prints data as a JSONResponse under --json, otherwise calls human.
func (rt *runtime) emit(cmd *cobra.Command, data any, human func(w io.Writer)) error {
	if rt.opts.jsonOutput {
		return NewJSONResponse(cmd.CommandPath(), data).Write(rt.streams.Out)
	}
	human(rt.streams.Out)
	return nil
}

// progress writes a status line to stderr; suppressed under --json.
func (rt *runtime) progress(format string, args ...any) {
	if rt.opts.jsonOutput {
		return
	}
	fmt.Fprintf(rt.streams.ErrOut, format+"\n", args...)
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

// exactArgs is cobra.ExactArgs returning a UsageError.
func exactArgs(n int, names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == n {
			return nil
		}
		return &UsageError{
			Field:  "arguments",
			Reason: fmt.Sprintf("%s expects %s, got %d", cmd.Name(), describeArgs(n, names), len(args)),
		}
	}
}

// minArgs is cobra.MinimumNArgs returning a UsageError.
func minArgs(n int, names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= n {
			return nil
		}
		return &UsageError{
			Field:  "arguments",
			Reason: fmt.Sprintf("%s expects at least %d (%s), got %d", cmd.Name(), n, strings.Join(names, ", "), len(args)),
		}
	}
}

// maxArgs is cobra.MaximumNArgs returning a UsageError.
func maxArgs(n int, names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) <= n {
			return nil
		}
		return &UsageError{
			Field:  "arguments",
			Reason: fmt.Sprintf("%s accepts at most %d (%s), got %d", cmd.Name(), n, strings.Join(names, ", "), len(args)),
		}
	}
}

func describeArgs(n int, names []string) string {
	if n == 0 {
		return "no arguments"
	}
	return fmt.Sprintf("%d (%s)", n, strings.Join(names, ", "))
}
