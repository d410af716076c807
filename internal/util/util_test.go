// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestWriteFileAtomic_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "token")

	require.NoError(t, WriteFileAtomic(path, []byte("abc"), 0600, 0700))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestWriteFileAtomic_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0600, 0700))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0600, 0700))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFileAtomic(filepath.Join(dir, "token"), []byte("x"), 0600, 0700))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestRemoveFile_MissingIsNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent")
	assert.NoError(t, RemoveFile(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	require.NoError(t, RemoveFile(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"你好世界你好", 5, "你好..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.max), "Truncate(%q, %d)", tt.in, tt.max)
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "[not set]", MaskSecret(""))

	masked := MaskSecret("eyJhbGciOiJIUzI1NiJ9.secret")
	assert.NotContains(t, masked, "eyJ")
	assert.Contains(t, masked, "length=27")
}
