// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 15*time.Second, cfg.Timeout.Duration)
	assert.Equal(t, 1500*time.Millisecond, cfg.RedirectDelay.Duration)
	assert.Equal(t, 5*time.Second, cfg.NotifyDuration.Duration)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, cfg.BaseURL, cfg.StreamBaseURL)
	assert.Equal(t, "session", filepath.Base(cfg.Storage.Path))
}

func TestLoadFrom_TOMLAndEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url = "https://chat.example.com/"
timeout = "30s"

[storage]
driver = "sqlite"

[log]
level = "debug"
`), 0600))

	t.Setenv("YINLAN_TIMEOUT", "5s")
	t.Setenv("YINLAN_STORAGE_REDIS_PREFIX", "kiosk")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout.Duration)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "session.db", filepath.Base(cfg.Storage.Path))
	assert.Equal(t, "kiosk", cfg.Storage.RedisPrefix)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("base_url = "), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "ftp://nope"
	cfg.StreamBaseURL = "http://ok"
	cfg.Timeout = Duration{}
	cfg.Storage.Driver = "etcd"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.Equal(t, []string{"base_url", "timeout", "storage.driver"}, fields)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")

	cfg := Default()
	cfg.BaseURL = "https://api.example.com"
	cfg.Timeout = Duration{20 * time.Second}
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", loaded.BaseURL)
	assert.Equal(t, 20*time.Second, loaded.Timeout.Duration)
}

func TestPath_EnvOverride(t *testing.T) {
	t.Setenv("YINLAN_CONFIG", "/tmp/custom.toml")
	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.toml", p)
}
