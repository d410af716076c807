// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Truncate shortens s to at most maxRunes runes, replacing the tail with
// "..." when it had to cut. Multi-byte characters are never split.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// MaskSecret returns a display form of a credential: its length and a
// short SHA-256 fingerprint. No part of the secret itself is revealed.
func MaskSecret(secret string) string {
	if secret == "" {
		return "[not set]"
	}
	h := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(secret), hex.EncodeToString(h[:4]))
}
