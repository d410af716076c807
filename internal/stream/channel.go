// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed is reported by Err after the caller closed the channel.
	ErrClosed = errors.New("stream closed")
	// ErrIncomplete is reported when the transport ended before "[DONE]".
	ErrIncomplete = errors.New("stream ended before completion")
	// ErrEmptySessionID is returned by Open for an empty session id.
	ErrEmptySessionID = errors.New("stream session id is empty")
)

// HandshakeError is returned by Open when the server refuses the stream.
type HandshakeError struct {
	Status int
	Body   string
}

func (e *HandshakeError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("stream handshake failed (%d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("stream handshake failed (%d)", e.Status)
}

// RemoteError carries the data of an "error" event.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "stream error event: " + e.Message }

// =============================================================================
// DIALER
// =============================================================================

// TokenSource supplies an optional credential for the stream handshake.
// *session.Store satisfies it.
type TokenSource interface {
	Token() string
}

// DefaultBuffer is the event channel capacity.
const DefaultBuffer = 64

// TokenQueryParam is the query key the backend reads a stream credential from.
const TokenQueryParam = "token"

// Dialer opens streaming channels. The zero value is not usable; set
// BaseURL or use NewDialer.
type Dialer struct {
	BaseURL    string
	HTTPClient *http.Client
	// TokenSource, when set, attaches a credential as the "token" query
	// parameter. Leave nil for the unauthenticated default.
	TokenSource TokenSource
	Logger      *zap.Logger
	Buffer      int
}

// NewDialer returns a Dialer for baseURL with default settings.
func NewDialer(baseURL string) *Dialer {
	return &Dialer{BaseURL: baseURL}
}

// Open performs GET {base}/api/chat/stream/{sessionID}. The returned
// Channel owns the connection until Close or completion.
func (d *Dialer) Open(ctx context.Context, sessionID string) (*Channel, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}

	u, err := url.Parse(strings.TrimRight(d.BaseURL, "/") + "/api/chat/stream/" + url.PathEscape(sessionID))
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	if d.TokenSource != nil {
		if tok := d.TokenSource.Token(); tok != "" {
			q := u.Query()
			q.Set(TokenQueryParam, tok)
			u.RawQuery = q.Encode()
		}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	hc := d.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, &HandshakeError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	buf := d.Buffer
	if buf <= 0 {
		buf = DefaultBuffer
	}

	ch := &Channel{
		events:    make(chan Event, buf),
		done:      make(chan struct{}),
		cancel:    cancel,
		body:      resp.Body,
		sessionID: sessionID,
		logger:    logger,
	}
	go ch.run(streamCtx)
	return ch, nil
}

// =============================================================================
// CHANNEL
// =============================================================================

// Channel is one open stream.
type Channel struct {
	events    chan Event
	done      chan struct{}
	cancel    context.CancelFunc
	body      io.ReadCloser
	sessionID string
	logger    *zap.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	completed atomic.Bool

	mu  sync.Mutex
	err error
}

// Events yields events in arrival order. It is closed on completion,
// transport closure or Close. The "[DONE]" marker itself is not delivered.
func (c *Channel) Events() <-chan Event { return c.events }

// Done is closed once the reader has stopped.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Completed reports whether "[DONE]" was received.
func (c *Channel) Completed() bool { return c.completed.Load() }

// Err reports why Events was closed: nil after completion, ErrClosed after
// Close, ErrIncomplete when the server hung up early, or the read error.
// It returns nil while the channel is still open.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close stops the stream and waits for the reader to exit. Safe to call
// more than once and concurrently.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
	})
	<-c.done
	return nil
}

// Collect drains the channel and returns the concatenated data of message
// events. An error event ends collection with a *RemoteError; the text
// gathered so far is returned alongside any error.
func (c *Channel) Collect(ctx context.Context) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return sb.String(), ctx.Err()
		case ev, ok := <-c.events:
			if !ok {
				return sb.String(), c.Err()
			}
			switch {
			case ev.IsError():
				c.Close()
				return sb.String(), &RemoteError{Message: ev.Data}
			case ev.Name == EventMessage:
				sb.WriteString(ev.Data)
			}
		}
	}
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)
	defer c.cancel()
	defer c.body.Close()

	reader := newSSEReader(c.body)
	count := 0
	for {
		ev, err := reader.next()
		if err != nil {
			c.finish(err)
			c.logger.Debug("stream ended",
				zap.String("session_id", c.sessionID),
				zap.Int("events", count),
				zap.Error(c.Err()),
			)
			return
		}
		if ev.IsDone() {
			c.completed.Store(true)
			c.finish(nil)
			c.logger.Debug("stream completed",
				zap.String("session_id", c.sessionID),
				zap.Int("events", count),
			)
			return
		}

		select {
		case c.events <- ev:
			count++
		case <-ctx.Done():
			c.finish(ctx.Err())
			return
		}
	}
}

// finish records the terminal cause.
func (c *Channel) finish(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed.Load():
		c.err = ErrClosed
	case cause == nil:
		c.err = nil
	case errors.Is(cause, io.EOF):
		c.err = ErrIncomplete
	default:
		c.err = cause
	}
}
