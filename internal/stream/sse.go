// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// MaxEventSize is the largest accepted event payload (64KB).
const MaxEventSize = 64 * 1024

// ErrEventTooLarge is returned when an event exceeds MaxEventSize.
var ErrEventTooLarge = errors.New("sse event exceeds maximum size")

// Event names and markers sent by the chat backend.
const (
	EventMessage = "message"
	EventError   = "error"
	DoneMarker   = "[DONE]"
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
	ID   string
}

// IsError reports whether the server flagged the event as an error.
func (e Event) IsError() bool { return e.Name == EventError }

// IsDone reports whether the event is the completion marker.
func (e Event) IsDone() bool { return e.Data == DoneMarker }

// sseReader parses the text/event-stream format. Field values lose exactly
// one leading space; multiple data lines are joined with "\n"; events
// without an explicit name are "message".
type sseReader struct {
	r      *bufio.Reader
	lastID string
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReader(r)}
}

// next returns the next dispatched event, or io.EOF at a clean end of
// stream. A trailing event without its blank line is still dispatched.
func (s *sseReader) next() (Event, error) {
	var (
		name    string
		data    bytes.Buffer
		hasData bool
		size    int
	)

	dispatch := func() Event {
		if name == "" {
			name = EventMessage
		}
		return Event{Name: name, Data: data.String(), ID: s.lastID}
	}

	for {
		line, err := s.readLine(MaxEventSize - size)
		if err != nil && err != io.EOF {
			return Event{}, err
		}
		if err == io.EOF && len(line) == 0 {
			if hasData {
				return dispatch(), nil
			}
			return Event{}, io.EOF
		}

		size += len(line)

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if hasData {
				return dispatch(), nil
			}
			name = ""
			size = 0
			if err == io.EOF {
				return Event{}, io.EOF
			}
			continue
		}

		if line[0] == ':' {
			continue
		}

		field, value := splitField(string(line))
		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				s.lastID = value
			}
		}
		// retry and unknown fields are ignored

		if err == io.EOF {
			if hasData {
				return dispatch(), nil
			}
			return Event{}, io.EOF
		}
	}
}

// readLine reads through the next '\n' without buffering more than limit
// bytes of it. Longer lines fail with ErrEventTooLarge.
func (s *sseReader) readLine(limit int) ([]byte, error) {
	var line []byte
	for {
		frag, err := s.r.ReadSlice('\n')
		if len(line)+len(frag) > limit {
			return nil, ErrEventTooLarge
		}
		line = append(line, frag...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

func splitField(line string) (field, value string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	field, value = line[:i], line[i+1:]
	return field, strings.TrimPrefix(value, " ")
}
