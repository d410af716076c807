// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Envelope is the backend's standard reply shape.
type Envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message"`
}

// OK reports whether the envelope signals success.
func (e Envelope) OK() bool { return e.Code == http.StatusOK }

// Binary is an unmodified non-JSON reply, e.g. a file download.
type Binary struct {
	ContentType string
	Header      http.Header
	Body        []byte
}

// Response is a successful call. Bare replies are normalised into the
// embedded Envelope with code 200 and message "success".
type Response struct {
	Envelope
	Status    int
	Header    http.Header
	RequestID string
	Wrapped   bool    // true when a bare reply was wrapped
	Binary    *Binary // set only for binary requests
}

// Decode unmarshals the envelope data into v. An absent or null data
// field leaves v untouched.
func (r *Response) Decode(v any) error {
	data := bytes.TrimSpace(r.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// =============================================================================
// REPLY CLASSIFICATION
// =============================================================================

// reply is the shape of one 2xx reply, decided once by classify.
type reply interface {
	replyKind() string
}

type replyBinary struct {
	bin *Binary
}

type replyBare struct {
	data json.RawMessage
}

type replyEnvelope struct {
	env Envelope
}

func (replyBinary) replyKind() string   { return "binary" }
func (replyBare) replyKind() string     { return "bare" }
func (replyEnvelope) replyKind() string { return "envelope" }

// classify decides the shape of a 2xx reply body. An object is an envelope
// only when its "code" member is truthy (non-zero number, non-empty string
// or true); arrays, scalars, non-JSON text and objects without such a code
// are bare.
func classify(binary bool, header http.Header, body []byte) reply {
	if binary {
		return replyBinary{bin: &Binary{
			ContentType: header.Get("Content-Type"),
			Header:      header,
			Body:        body,
		}}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return replyBare{data: json.RawMessage("null")}
	}
	if !json.Valid(trimmed) {
		text, _ := json.Marshal(string(body))
		return replyBare{data: text}
	}
	if trimmed[0] != '{' {
		return replyBare{data: json.RawMessage(trimmed)}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return replyBare{data: json.RawMessage(trimmed)}
	}
	code, truthy := codeValue(obj["code"])
	if !truthy {
		return replyBare{data: json.RawMessage(trimmed)}
	}

	env := Envelope{Code: code, Data: obj["data"]}
	if raw, ok := obj["message"]; ok {
		var msg string
		if json.Unmarshal(raw, &msg) == nil {
			env.Message = msg
		}
	}
	return replyEnvelope{env: env}
}

// codeValue interprets an envelope code member. Codes that are truthy but
// not integral map to 0, which never equals 200.
func codeValue(raw json.RawMessage) (code int, truthy bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	switch c := v.(type) {
	case float64:
		if c == 0 {
			return 0, false
		}
		if c == float64(int(c)) {
			return int(c), true
		}
		return 0, true
	case string:
		if c == "" {
			return 0, false
		}
		n, err := strconv.Atoi(c)
		if err != nil {
			return 0, true
		}
		return n, true
	case bool:
		return 0, c
	default:
		// null, arrays and objects
		return 0, v != nil
	}
}

// backendMessage extracts {"message": "..."} from an error body, if present.
func backendMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Message
}
