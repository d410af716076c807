// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router decides whether a navigation between views may proceed.
//
// Every view is declared once as a Descriptor carrying its access class.
// The Guard evaluates each transition exactly once and resolves it to
// Proceed or Redirect; the Navigator owns the per-tab navigation state,
// applies decisions and follows redirects.
//
// # Key Types
//
//   - Descriptor: static route declaration (name, path pattern, access class)
//   - Table: compiled descriptors, resolves a Location to a Match
//   - Guard: pure decision function over (State, Principal, from, to)
//   - Navigator: current location plus State, implements forced login
//
// # Decision Order
//
//  1. The share entry route enables share mode and proceeds.
//  2. In share mode, any route that does not require authentication proceeds.
//  3. Public routes proceed; an authenticated user asking for login goes home.
//  4. Authenticated routes send anonymous users to login with the original
//     target preserved in the "redirect" query parameter; admin routes send
//     non-admins home.
//  5. Anything else (no access metadata, or no matching route) proceeds.
//
// # Usage
//
//	nav := router.NewNavigator(router.NewGuard(router.DefaultTable()), store)
//	res, err := nav.Navigate("/admin/logs")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Final.FullPath())
package router
