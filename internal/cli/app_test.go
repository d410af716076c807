// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/1186985905/YinLang/internal/api"
	"github.com/1186985905/YinLang/internal/config"
	"github.com/1186985905/YinLang/internal/router"
	"github.com/1186985905/YinLang/internal/session"
)

func memoryConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.StreamBaseURL = baseURL
	cfg.Storage.Driver = config.DriverMemory
	return cfg
}

func TestApp_AuthFailureForcesLogin(t *testing.T) {
	fb := newFakeBackend(t)
	sched := api.NewManualScheduler()

	var seen []router.Result
	app, err := NewApp(context.Background(), memoryConfig(fb.URL()), zap.NewNop(),
		WithAppScheduler(sched),
		WithNavigationObserver(func(res router.Result) { seen = append(seen, res) }),
	)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	_, err = app.Service.SignIn(ctx, app.Store, "bob", "secret")
	require.NoError(t, err)
	_, err = app.Navigator.Navigate("/profile")
	require.NoError(t, err)
	require.Equal(t, "/profile", app.Navigator.Current().Path)

	fb.revoke("bob")
	_, err = app.Service.Profile(ctx)
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, ExitCode(err))
	assert.False(t, app.Store.IsAuthenticated())
	assert.Equal(t, "/profile", app.Navigator.Current().Path, "login is deferred until the delay elapses")

	require.Equal(t, 1, sched.RunPending())
	assert.Equal(t, "/login", app.Navigator.Current().Path)
	require.NotEmpty(t, seen)
	assert.Equal(t, "/login", seen[len(seen)-1].Final.Path)
}

func TestApp_CloseCancelsForcedLogin(t *testing.T) {
	fb := newFakeBackend(t)
	sched := api.NewManualScheduler()

	app, err := NewApp(context.Background(), memoryConfig(fb.URL()), nil, WithAppScheduler(sched))
	require.NoError(t, err)

	_, err = app.Service.Profile(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, sched.Pending())

	require.NoError(t, app.Close())
	assert.Zero(t, sched.Pending())
	assert.Zero(t, sched.RunPending())
}

func TestApp_RequireSession(t *testing.T) {
	fb := newFakeBackend(t)
	app, err := NewApp(context.Background(), memoryConfig(fb.URL()), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.ErrorIs(t, app.requireSession(), ErrNotLoggedIn)
	_, err = app.Service.SignIn(context.Background(), app.Store, "bob", "secret")
	require.NoError(t, err)
	assert.NoError(t, app.requireSession())
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		st   config.StorageConfig
	}{
		{name: "memory", st: config.StorageConfig{Driver: config.DriverMemory}},
		{name: "file", st: config.StorageConfig{Driver: config.DriverFile, Path: filepath.Join(t.TempDir(), "session")}},
		{name: "sqlite", st: config.StorageConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "session.db")}},
		{name: "redis", st: config.StorageConfig{Driver: config.DriverRedis, RedisAddr: mr.Addr(), RedisPrefix: "test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, closeFn, err := openRepository(ctx, tt.st)
			require.NoError(t, err)
			if closeFn != nil {
				defer closeFn()
			}

			store, err := session.NewStore(ctx, repo)
			require.NoError(t, err)
			require.NoError(t, store.Establish(ctx, "tok-bob", session.User{Username: "bob", Role: "user"}))

			reopened, err := session.NewStore(ctx, repo)
			require.NoError(t, err)
			assert.True(t, reopened.IsAuthenticated())
			assert.Equal(t, "bob", reopened.Current().Username())
		})
	}
}

func TestOpenRepository_Errors(t *testing.T) {
	_, _, err := openRepository(context.Background(), config.StorageConfig{Driver: "etcd"})
	assert.ErrorContains(t, err, "unknown storage driver")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, _, err = openRepository(context.Background(), config.StorageConfig{Driver: config.DriverRedis, RedisAddr: addr})
	assert.ErrorContains(t, err, "connect to redis")
}
