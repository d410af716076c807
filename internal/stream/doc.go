// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream opens the server-sent events channel that delivers a chat
// reply incrementally.
//
// The channel is independent of the request pipeline in package api: it
// applies no envelope rules, never clears the session and is
// unauthenticated unless a TokenSource is configured. Events are delivered
// in arrival order; a data payload of "[DONE]" completes the channel.
// There is no reconnect.
//
// # Usage
//
//	d := stream.NewDialer(cfg.StreamBaseURL)
//	ch, err := d.Open(ctx, sessionID)
//	if err != nil {
//	    return err
//	}
//	defer ch.Close()
//	for ev := range ch.Events() {
//	    fmt.Print(ev.Data)
//	}
//	return ch.Err()
package stream
