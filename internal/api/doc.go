// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the single conduit for calls to the backend.
//
// Outbound, the Client attaches the session's bearer credential, strips
// nil query parameters, stamps an X-Request-ID and bounds every call by a
// fixed timeout. Inbound, each successful reply is classified exactly once
// as binary, bare or envelope: binary replies pass through untouched, bare
// JSON is wrapped into an Envelope with code 200, and envelopes with a code
// other than 200 fail.
//
// Every failure is reported to the Notifier and returned as an *Error whose
// Kind is one of Validation, Auth, NotFound, Server or Network. Auth
// failures (HTTP 401 and 403) additionally clear the session and schedule a
// forced navigation to the login view after RedirectDelay.
//
// # Usage
//
//	client := api.NewClient(cfg.BaseURL, store,
//	    api.WithNotifier(notify.NewConsole(os.Stderr, false)),
//	    api.WithRedirector(nav),
//	)
//	resp, err := client.Get(ctx, "/api/users", map[string]any{"page": 1, "role": nil})
//	if errors.Is(err, api.ErrAuth) {
//	    // session already cleared, login navigation scheduled
//	}
package api
