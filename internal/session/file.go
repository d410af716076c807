// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/1186985905/YinLang/internal/util"
)

// FileRepository stores each key as a file in a directory, written
// atomically with owner-only permissions.
type FileRepository struct {
	dir string
}

// NewFileRepository returns a repository rooted at dir. The directory is
// created on first Save.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Dir returns the directory holding the key files.
func (f *FileRepository) Dir() string { return f.dir }

func (f *FileRepository) path(key string) string {
	return filepath.Join(f.dir, key)
}

func (f *FileRepository) read(key string) (string, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Load implements Repository.
func (f *FileRepository) Load(ctx context.Context) (Record, error) {
	token, err := f.read(KeyToken)
	if err != nil {
		return Record{}, err
	}
	raw, err := f.read(KeyUser)
	if err != nil {
		return Record{}, err
	}
	u, err := decodeUser(raw)
	if err != nil {
		return Record{Token: token}, err
	}
	return Record{Token: token, User: u}, nil
}

// Save implements Repository. The user file is written before the token
// file so a crash in between leaves no token without its user.
func (f *FileRepository) Save(ctx context.Context, rec Record) error {
	raw, err := encodeUser(rec.User)
	if err != nil {
		return err
	}
	if err := f.write(KeyUser, raw); err != nil {
		return err
	}
	return f.write(KeyToken, rec.Token)
}

func (f *FileRepository) write(key, value string) error {
	if value == "" {
		return util.RemoveFile(f.path(key))
	}
	if err := util.WriteFileAtomic(f.path(key), []byte(value), 0600, 0700); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Clear implements Repository. The token goes first, mirroring Save.
func (f *FileRepository) Clear(ctx context.Context) error {
	if err := util.RemoveFile(f.path(KeyToken)); err != nil {
		return fmt.Errorf("remove %s: %w", KeyToken, err)
	}
	if err := util.RemoveFile(f.path(KeyUser)); err != nil {
		return fmt.Errorf("remove %s: %w", KeyUser, err)
	}
	return nil
}
