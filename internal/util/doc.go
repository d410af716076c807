// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the yinlan client packages.
//
// # Key Functions
//
//   - WriteFileAtomic: crash-safe file writing (temp file, fsync, rename)
//   - RemoveFile: idempotent file removal
//   - Truncate: UTF-8 safe truncation with ellipsis
//   - MaskSecret: display form of a credential that reveals no fragment
package util
