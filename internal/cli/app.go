// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/1186985905/YinLang/internal/api"
	"github.com/1186985905/YinLang/internal/backend"
	"github.com/1186985905/YinLang/internal/config"
	"github.com/1186985905/YinLang/internal/logging"
	"github.com/1186985905/YinLang/internal/notify"
	"github.com/1186985905/YinLang/internal/router"
	"github.com/1186985905/YinLang/internal/session"
	"github.com/1186985905/YinLang/internal/stream"
)

// =============================================================================
// APP
// =============================================================================

// App owns one instance of each client component. The Navigator is the
// pipeline's Redirector, and the Store is both the pipeline's Session and
// the Navigator's Authenticator.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *session.Store
	Client    *api.Client
	Service   *backend.Service
	Navigator *router.Navigator
	Dialer    *stream.Dialer
	Notifier  notify.Notifier

	repo    session.Repository
	watcher *session.Watcher
	closers []func() error
}

// AppOption overrides a component NewApp would otherwise build from config.
type AppOption func(*appOptions)

type appOptions struct {
	notifier   notify.Notifier
	scheduler  api.Scheduler
	repo       session.Repository
	httpClient *http.Client
	observer   func(router.Result)
}

// WithAppNotifier replaces the console notifier.
func WithAppNotifier(n notify.Notifier) AppOption {
	return func(o *appOptions) { o.notifier = n }
}

// WithAppScheduler replaces the timer used for forced logins.
func WithAppScheduler(s api.Scheduler) AppOption {
	return func(o *appOptions) { o.scheduler = s }
}

// WithAppRepository replaces the repository selected by storage.driver.
func WithAppRepository(r session.Repository) AppOption {
	return func(o *appOptions) { o.repo = r }
}

// WithAppHTTPClient replaces the transport of both the pipeline and the
// stream dialer.
func WithAppHTTPClient(hc *http.Client) AppOption {
	return func(o *appOptions) { o.httpClient = hc }
}

// WithNavigationObserver is called after every navigation.
func WithNavigationObserver(fn func(router.Result)) AppOption {
	return func(o *appOptions) { o.observer = fn }
}

// NewApp wires the client from cfg. The returned App must be closed.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.OrNop(logger)
	if o.notifier == nil {
		o.notifier = notify.Discard
	}

	app := &App{Config: cfg, Logger: logger, Notifier: o.notifier}

	repo := o.repo
	if repo == nil {
		r, closeFn, err := openRepository(ctx, cfg.Storage)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		repo = r
		if closeFn != nil {
			app.closers = append(app.closers, closeFn)
		}
	}
	app.repo = repo

	store, err := session.NewStore(ctx, repo, session.WithLogger(logger))
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}
	app.Store = store
	store.Subscribe(func(s session.Session) {
		logger.Debug("session changed", zap.Bool("valid", s.Valid), zap.String("user", s.Username()))
	})

	navOpts := []router.NavigatorOption{router.WithNavigatorLogger(logger)}
	if o.observer != nil {
		navOpts = append(navOpts, router.WithObserver(o.observer))
	}
	app.Navigator = router.NewNavigator(router.NewGuard(router.DefaultTable()), store, navOpts...)

	clientOpts := []api.Option{
		api.WithTimeout(cfg.Timeout.Duration),
		api.WithNotifier(o.notifier),
		api.WithRedirector(app.Navigator),
		api.WithLogger(logger),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		api.WithRedirectDelay(cfg.RedirectDelay.Duration),
		api.WithNotifyDuration(cfg.NotifyDuration.Duration),
		api.WithHTTPClient(o.httpClient),
	}
	if o.scheduler != nil {
		clientOpts = append(clientOpts, api.WithScheduler(o.scheduler))
	}
	app.Client = api.NewClient(cfg.BaseURL, store, clientOpts...)
	app.closers = append(app.closers, func() error {
		app.Client.Close()
		return nil
	})
	app.Service = backend.New(app.Client)

	app.Dialer = stream.NewDialer(cfg.StreamBaseURL)
	app.Dialer.Logger = logger
	if o.httpClient != nil {
		app.Dialer.HTTPClient = o.httpClient
	}

	return app, nil
}

// WatchSession reloads the store when another process logs in or out.
// It is a no-op unless storage.watch is set and the driver is file.
func (a *App) WatchSession(ctx context.Context) error {
	fileRepo, ok := a.repo.(*session.FileRepository)
	if !ok || !a.Config.Storage.Watch || a.watcher != nil {
		return nil
	}
	w := session.NewWatcher(a.Store, fileRepo, 0, a.Logger)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watch session: %w", err)
	}
	a.watcher = w
	a.closers = append(a.closers, w.Close)
	return nil
}

// Close releases the App's resources in reverse order of acquisition and
// cancels forced logins that have not fired.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// requireSession returns ErrNotLoggedIn when the store holds no session.
func (a *App) requireSession() error {
	if !a.Store.IsAuthenticated() {
		return ErrNotLoggedIn
	}
	return nil
}

// =============================================================================
// STORAGE
// =============================================================================

// openRepository builds the repository named by st.Driver. The returned
// close function is nil when there is nothing to release.
func openRepository(ctx context.Context, st config.StorageConfig) (session.Repository, func() error, error) {
	switch st.Driver {
	case config.DriverMemory:
		return session.NewMemoryRepository(), nil, nil
	case config.DriverFile:
		return session.NewFileRepository(st.Path), nil, nil
	case config.DriverSQLite:
		repo, err := session.OpenSQLiteRepository(ctx, st.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: st.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis %s: %w", st.RedisAddr, err)
		}
		return session.NewRedisRepository(rdb, st.RedisPrefix, 0), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", st.Driver)
	}
}
