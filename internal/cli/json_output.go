// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - --json envelopes.
//
// Under --json every command prints exactly one JSONResponse on stdout and
// writes progress and notifications to stderr, so output can be piped to jq.
package cli

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/1186985905/YinLang/internal/api"
)

// JSONResponse wraps a command's result or failure.
type JSONResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	// Error is null on success.
	Error *string `json:"error"`

	// Kind and RequestID are set when a backend call failed.
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	Timestamp string `json:"timestamp"`
	Command   string `json:"command,omitempty"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// NewJSONResponse wraps data from a successful command.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{Success: true, Data: data, Timestamp: now(), Command: command}
}

// NewJSONErrorResponse wraps err. A pipeline error contributes its kind
// and request id.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	resp := &JSONResponse{Error: &msg, Timestamp: now(), Command: command}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		resp.Kind = apiErr.Kind.String()
		resp.RequestID = apiErr.RequestID
	}
	return resp
}

// Write encodes the response as indented JSON. HTML characters in chat
// content are left unescaped.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}
