// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Storage keys. Each repository persists exactly these two entries.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrCorruptRecord is returned by Load when the persisted user entry
// cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt session record")

// Record is the persisted form of a session. An empty Token or a nil User
// means the corresponding key is absent.
type Record struct {
	Token string
	User  *User
}

// complete reports whether both keys are present, which is the only case
// that rehydrates into a valid session.
func (r Record) complete() bool {
	return r.Token != "" && r.User != nil
}

// Repository persists the session durably.
//
// Load returns a zero Record, not an error, when nothing is stored. Save
// replaces both keys. Clear removes both keys and is idempotent.
type Repository interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

func encodeUser(u *User) (string, error) {
	if u == nil {
		return "", nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(data), nil
}

func decodeUser(raw string) (*User, error) {
	if raw == "" {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &u, nil
}

// =============================================================================
// MEMORY REPOSITORY
// =============================================================================

// MemoryRepository keeps the record in process memory. It stores the
// encoded user so that callers cannot alias the persisted value.
type MemoryRepository struct {
	mu    sync.Mutex
	token string
	user  string

	saves  int
	clears int
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load implements Repository.
func (m *MemoryRepository) Load(ctx context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := decodeUser(m.user)
	if err != nil {
		return Record{}, err
	}
	return Record{Token: m.token, User: u}, nil
}

// Save implements Repository.
func (m *MemoryRepository) Save(ctx context.Context, rec Record) error {
	raw, err := encodeUser(rec.User)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = rec.Token
	m.user = raw
	m.saves++
	return nil
}

// Clear implements Repository.
func (m *MemoryRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = "", ""
	m.clears++
	return nil
}

// Put stores raw key values, bypassing encoding. Used to seed partial or
// corrupt state.
func (m *MemoryRepository) Put(token, userJSON string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = token, userJSON
}

// Counts returns how many times Save and Clear were called.
func (m *MemoryRepository) Counts() (saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.clears
}
