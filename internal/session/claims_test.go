// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only-secret"))
	require.NoError(t, err)
	return tok
}

func TestParseClaims(t *testing.T) {
	issued := time.Now().Add(-time.Hour).Truncate(time.Second)
	expires := issued.Add(24 * time.Hour)
	tok := signToken(t, jwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	c, err := ParseClaims(tok)
	require.NoError(t, err)

	assert.Equal(t, "alice", c.Subject)
	assert.True(t, c.IssuedAt.Equal(issued))
	assert.True(t, c.ExpiresAt.Equal(expires))
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(expires.Add(time.Second)))
	assert.Zero(t, c.Remaining(expires.Add(time.Minute)))
}

func TestParseClaims_NoExpiry(t *testing.T) {
	c, err := ParseClaims(signToken(t, jwt.RegisteredClaims{Subject: "bob"}))
	require.NoError(t, err)
	assert.False(t, c.Expired(time.Now().Add(100*365*24*time.Hour)))
}

func TestParseClaims_Opaque(t *testing.T) {
	_, err := ParseClaims("not-a-jwt")
	assert.Error(t, err)
}
