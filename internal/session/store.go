// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/1186985905/YinLang/internal/logging"
)

// ErrEmptyCredential is returned by Establish when the credential is empty.
var ErrEmptyCredential = errors.New("empty credential")

// =============================================================================
// STORE
// =============================================================================

// Store owns the current session. All other components read it through
// the accessors and mutate it only through Establish and Clear.
//
// Each transition updates memory and the repository while holding the
// store lock, so a transition is a single step relative to concurrent
// readers and other transitions.
type Store struct {
	mu   sync.RWMutex
	repo Repository
	cur  Session

	logger *zap.Logger

	obsMu     sync.Mutex
	observers map[int]func(Session)
	nextObs   int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// NewStore returns a store rehydrated from repo.
//
// A record with both keys becomes a valid session. A partial record is no
// session. A corrupt record is logged and treated as no session; the
// returned error is nil in that case so startup can continue.
func NewStore(ctx context.Context, repo Repository, opts ...Option) (*Store, error) {
	s := &Store{
		repo:      repo,
		logger:    zap.NewNop(),
		observers: make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}

	cur, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cur = cur
	return s, nil
}

// load reads the repository and applies the rehydration rule.
func (s *Store) load(ctx context.Context) (Session, error) {
	rec, err := s.repo.Load(ctx)
	if errors.Is(err, ErrCorruptRecord) {
		s.logger.Warn("ignoring corrupt persisted session", zap.Error(err))
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !rec.complete() {
		if rec.Token != "" || rec.User != nil {
			s.logger.Debug("ignoring partial persisted session",
				zap.Bool("has_token", rec.Token != ""),
				zap.Bool("has_user", rec.User != nil))
		}
		return Session{}, nil
	}
	return Session{Credential: rec.Token, Identity: rec.User, Valid: true}, nil
}

// Establish sets the credential and identity together and persists them.
//
// The in-memory session is valid when Establish returns, even if the
// repository write failed; the write error is returned for the caller to
// report.
func (s *Store) Establish(ctx context.Context, credential string, identity User) error {
	if credential == "" {
		return ErrEmptyCredential
	}

	s.mu.Lock()
	next := Session{Credential: credential, Identity: &identity, Valid: true}
	s.cur = next.clone()
	err := s.repo.Save(ctx, Record{Token: credential, User: &identity})
	snapshot := s.cur.clone()
	s.mu.Unlock()

	s.logger.Info("session established",
		zap.String("username", identity.Username),
		zap.String("role", identity.Role))
	s.notify(snapshot)

	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Clear drops the credential and identity together and removes the
// persisted keys. Clearing an invalid session is a no-op in memory; the
// repository is still cleared so stale keys cannot survive.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	was := s.cur.Valid
	s.cur = Session{}
	err := s.repo.Clear(ctx)
	s.mu.Unlock()

	if was {
		s.logger.Info("session cleared")
		s.notify(Session{})
	}
	if err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

// Reload re-reads the repository, applying the same rule as startup.
// Observers are notified only if the session changed.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	next, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changed := !s.cur.equal(next)
	s.cur = next
	snapshot := next.clone()
	s.mu.Unlock()

	if changed {
		s.logger.Debug("session reloaded from storage", zap.Bool("valid", snapshot.Valid))
		s.notify(snapshot)
	}
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// IsAuthenticated reports whether a credential is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Valid
}

// IsAdmin reports whether the session belongs to an admin.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.IsAdmin()
}

// Token returns the bearer credential, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Credential
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers fn to be called with a snapshot after each
// transition. The returned function unregisters it.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(snapshot Session) {
	s.obsMu.Lock()
	fns := make([]func(Session), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	// Callbacks run outside every lock.
	for _, fn := range fns {
		fn(snapshot.clone())
	}
}
