// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS storage (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteRepository stores the two keys in a key/value table of a local
// SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLiteRepository opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	// One connection: ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create storage table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Load implements Repository.
func (r *SQLiteRepository) Load(ctx context.Context) (Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM storage WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return Record{}, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()

	var token, raw string
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Record{}, fmt.Errorf("scan session: %w", err)
		}
		switch k {
		case KeyToken:
			token = v
		case KeyUser:
			raw = v
		}
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterate session: %w", err)
	}

	u, err := decodeUser(raw)
	if err != nil {
		return Record{Token: token}, err
	}
	return Record{Token: token, User: u}, nil
}

// Save implements Repository. Both keys are replaced in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, rec Record) error {
	raw, err := encodeUser(rec.User)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, kv := range [][2]string{{KeyToken, rec.Token}, {KeyUser, raw}} {
		if kv[1] == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM storage WHERE key = ?`, kv[0]); err != nil {
				return fmt.Errorf("delete %s: %w", kv[0], err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO storage (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("upsert %s: %w", kv[0], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear implements Repository.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM storage WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
