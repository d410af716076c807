// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind classifies a failed call.
type Kind int

const (
	// KindValidation is a 400-class failure the caller can fix by changing input.
	KindValidation Kind = iota + 1
	// KindAuth is a 401/403 failure. The session has been torn down.
	KindAuth
	// KindNotFound is a 404 failure.
	KindNotFound
	// KindServer covers 500 and any failure not otherwise classified.
	KindServer
	// KindNetwork means no reply arrived: timeout or connectivity loss.
	KindNetwork
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinel errors for errors.Is checks against an *Error.
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "validation error"}
	ErrAuth       = &Error{Kind: KindAuth, Message: "authentication error"}
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "not found"}
	ErrServer     = &Error{Kind: KindServer, Message: "server error"}
	ErrNetwork    = &Error{Kind: KindNetwork, Message: "network error"}
)

// =============================================================================
// ERROR
// =============================================================================

// Error is returned for every failed call.
type Error struct {
	Kind      Kind
	Status    int    // HTTP status, 0 when no reply arrived
	Code      int    // envelope code, 0 for transport failures
	Message   string // user-facing text, also sent to the Notifier
	RequestID string
	Err       error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrAuth) works
// for every auth failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// =============================================================================
// MESSAGES
// =============================================================================

// User-facing failure messages.
const (
	MsgBadRequest    = "bad request parameters"
	MsgUnauthorized  = "unauthorized, please log in again"
	MsgForbidden     = "access denied, please log in again"
	MsgNotFound      = "resource not found"
	MsgServerError   = "server error"
	MsgNetworkError  = "network error, please check your connection"
	MsgRequestFailed = "request failed"
	MsgSuccess       = "success"
)

// statusError maps a non-2xx HTTP status and the backend's message (if any)
// to the failure returned to the caller.
func statusError(status int, backendMsg string) *Error {
	e := &Error{Status: status}
	switch status {
	case http.StatusBadRequest:
		e.Kind = KindValidation
		e.Message = orDefault(backendMsg, MsgBadRequest)
	case http.StatusUnauthorized:
		e.Kind = KindAuth
		e.Message = MsgUnauthorized
	case http.StatusForbidden:
		e.Kind = KindAuth
		e.Message = MsgForbidden
	case http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = MsgNotFound
	case http.StatusInternalServerError:
		e.Kind = KindServer
		e.Message = MsgServerError
	default:
		e.Kind = KindServer
		e.Message = orDefault(backendMsg, fmt.Sprintf("request failed (%d)", status))
	}
	return e
}

// envelopeError maps a failed envelope. Envelope failures never carry the
// auth side effect, whatever their code.
func envelopeError(status, code int, msg string) *Error {
	e := &Error{Status: status, Code: code, Message: orDefault(msg, MsgRequestFailed)}
	switch code {
	case http.StatusBadRequest:
		e.Kind = KindValidation
	case http.StatusNotFound:
		e.Kind = KindNotFound
	default:
		e.Kind = KindServer
	}
	return e
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
