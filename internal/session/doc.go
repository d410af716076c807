// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the client's authentication state: the bearer
// credential and the identity of the logged-in user.
//
// The session has two states, valid and invalid, and exactly two
// transitions, Establish and Clear. Every transition is written through to
// a Repository so that a restarted process rehydrates the same session
// without a network round trip.
//
// # Key Types
//
//   - Store: process-wide owner of the current Session
//   - Session: read-only snapshot (credential, identity, validity)
//   - Repository: durable storage of the two session keys
//   - FileRepository, SQLiteRepository, RedisRepository, MemoryRepository
//   - Watcher: reloads the Store when another process rewrites the files
//
// # Usage
//
//	repo := session.NewFileRepository(dir)
//	store, err := session.NewStore(ctx, repo, session.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	_ = store.Establish(ctx, token, user)
//	if store.IsAdmin() {
//	    // ...
//	}
//
// # Invariants
//
// Valid is true exactly when a credential is present. An identity without
// a credential is never observable: rehydration treats a lone user record
// as no session.
package session
