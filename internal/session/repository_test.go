// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepositoryContract runs the behaviour every Repository must share.
func testRepositoryContract(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	rec, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec, "empty repository loads a zero record")

	dept := &Department{ID: 3, Name: "ops"}
	require.NoError(t, repo.Save(ctx, Record{Token: "tok-a", User: &User{ID: 7, Username: "alice", Role: "user", Department: dept}}))
	rec, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-a", rec.Token)
	require.NotNil(t, rec.User)
	assert.Equal(t, int64(7), rec.User.ID)
	assert.Equal(t, "ops", rec.User.Department.Name)

	require.NoError(t, repo.Save(ctx, Record{Token: "tok-b", User: &User{Username: "bob", Role: AdminRole}}))
	rec, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-b", rec.Token)
	assert.Equal(t, "bob", rec.User.Username)

	require.NoError(t, repo.Clear(ctx))
	require.NoError(t, repo.Clear(ctx), "Clear must be idempotent")
	rec, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)

	// A store over the repository rehydrates what an earlier store persisted.
	first, err := NewStore(ctx, repo)
	require.NoError(t, err)
	require.NoError(t, first.Establish(ctx, "tok-c", User{Username: "carol", Role: AdminRole}))

	second, err := NewStore(ctx, repo)
	require.NoError(t, err)
	assert.True(t, second.IsAuthenticated())
	assert.True(t, second.IsAdmin())
	assert.Equal(t, "tok-c", second.Token())
}

func TestMemoryRepository_Contract(t *testing.T) {
	testRepositoryContract(t, NewMemoryRepository())
}

func TestFileRepository_Contract(t *testing.T) {
	testRepositoryContract(t, NewFileRepository(filepath.Join(t.TempDir(), "session")))
}

func TestFileRepository_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	repo := NewFileRepository(dir)
	require.NoError(t, repo.Save(context.Background(), Record{Token: "tok", User: &User{Username: "a"}}))

	for _, key := range []string{KeyToken, KeyUser} {
		info, err := os.Stat(filepath.Join(dir, key))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), key)
	}
}

func TestFileRepository_CorruptUser(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyToken), []byte("tok\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyUser), []byte("{oops"), 0600))

	_, err := NewFileRepository(dir).Load(context.Background())
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestSQLiteRepository_Contract(t *testing.T) {
	repo, err := OpenSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "db", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	testRepositoryContract(t, repo)
}

func TestSQLiteRepository_InMemory(t *testing.T) {
	repo, err := OpenSQLiteRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	testRepositoryContract(t, repo)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisRepository_Contract(t *testing.T) {
	_, rdb := newTestRedis(t)
	testRepositoryContract(t, NewRedisRepository(rdb, "test", 0))
}

func TestRedisRepository_KeysAndTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewRedisRepository(rdb, "kiosk", time.Hour)

	require.NoError(t, repo.Save(context.Background(), Record{Token: "tok", User: &User{Username: "a"}}))

	got, err := mr.Get("kiosk:token")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
	assert.True(t, mr.Exists("kiosk:user"))
	assert.Equal(t, time.Hour, mr.TTL("kiosk:token"))

	mr.FastForward(2 * time.Hour)
	rec, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}
