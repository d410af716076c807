// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/1186985905/YinLang/internal/notify"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultTimeout bounds every call.
	DefaultTimeout = 15 * time.Second
	// DefaultRedirectDelay separates an auth failure from the forced login,
	// so the failure notification is seen first.
	DefaultRedirectDelay = 1500 * time.Millisecond

	// HeaderRequestID carries the per-call correlation id.
	HeaderRequestID = "X-Request-ID"

	userAgent = "yinlan-cli"
)

// Session is the credential source and the state torn down on auth
// failures. *session.Store satisfies it.
type Session interface {
	Token() string
	Clear(ctx context.Context) error
}

// Request describes one call.
type Request struct {
	Method string
	Path   string // joined to the base URL; may carry its own query
	Params Params
	Body   any // JSON-encoded unless it is an io.Reader
	Header http.Header
	Binary bool // return the reply unmodified as *Binary
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends requests through the pipeline. It is safe for concurrent
// use; calls are neither ordered nor deduplicated.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	session        Session
	notifier       notify.Notifier
	scheduler      Scheduler
	redirector     Redirector
	logger         *zap.Logger
	limiter        *rate.Limiter
	timeout        time.Duration
	redirectDelay  time.Duration
	notifyDuration time.Duration

	mu       sync.Mutex
	pending  map[uint64]Task
	nextTask uint64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call ceiling.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithNotifier sets where failures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithScheduler sets the scheduler for forced login.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithRedirector sets the forced login target.
func WithRedirector(r Redirector) Option {
	return func(c *Client) { c.redirector = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRateLimit limits outgoing calls to rps per second with the given
// burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRedirectDelay sets the delay before the forced login.
func WithRedirectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.redirectDelay = d
		}
	}
}

// WithNotifyDuration sets how long failure notifications stay visible.
func WithNotifyDuration(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.notifyDuration = d
		}
	}
}

// NewClient creates a client for baseURL. session may be nil for
// anonymous use; it is then never cleared.
func NewClient(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		session:        session,
		notifier:       notify.Discard,
		scheduler:      TimerScheduler{},
		logger:         zap.NewNop(),
		timeout:        DefaultTimeout,
		redirectDelay:  DefaultRedirectDelay,
		notifyDuration: notify.DefaultDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Close cancels forced logins that have not fired yet.
func (c *Client) Close() {
	c.mu.Lock()
	tasks := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
}

// pendingLogins returns how many forced logins are scheduled and not yet run.
func (c *Client) pendingLogins() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// Get issues a GET with query params.
func (c *Client) Get(ctx context.Context, path string, params Params) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Params: params})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Download fetches path as an unmodified binary reply.
func (c *Client) Download(ctx context.Context, path string, params Params) (*Binary, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Params: params, Binary: true})
	if err != nil {
		return nil, err
	}
	return resp.Binary, nil
}

// =============================================================================
// PIPELINE
// =============================================================================

// Do sends req and applies the reply rules. Every failure has already been
// sent to the Notifier when the *Error is returned.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.build(ctx, req, requestID)
	if err != nil {
		return nil, c.fail(req, &Error{Kind: KindValidation, Message: err.Error(), Err: err}, requestID, start)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.fail(req, &Error{Kind: KindNetwork, Message: MsgNetworkError, Err: err}, requestID, start)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(req, &Error{Kind: KindNetwork, Message: MsgNetworkError, Err: err}, requestID, start)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(req, &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: MsgNetworkError, Err: err}, requestID, start)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(resp.StatusCode, backendMessage(body))
		if apiErr.Kind == KindAuth {
			c.expireSession(context.WithoutCancel(ctx), requestID)
		}
		return nil, c.fail(req, apiErr, requestID, start)
	}

	out := &Response{Status: resp.StatusCode, Header: resp.Header, RequestID: requestID}

	switch r := classify(req.Binary, resp.Header, body).(type) {
	case replyBinary:
		out.Envelope = Envelope{Code: http.StatusOK, Message: MsgSuccess}
		out.Binary = r.bin
	case replyBare:
		out.Envelope = Envelope{Code: http.StatusOK, Data: r.data, Message: MsgSuccess}
		out.Wrapped = true
	case replyEnvelope:
		if !r.env.OK() {
			return nil, c.fail(req, envelopeError(resp.StatusCode, r.env.Code, r.env.Message), requestID, start)
		}
		out.Envelope = r.env
	}

	c.logger.Debug("api call",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
	)
	return out, nil
}

// build constructs the transport request.
func (c *Client) build(ctx context.Context, req Request, requestID string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(req.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if len(req.Params) > 0 {
		u.RawQuery = encodeParams(u.Query(), req.Params).Encode()
	}

	var body io.Reader
	isJSON := false
	switch b := req.Body.(type) {
	case nil:
	case io.Reader:
		body = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		isJSON = true
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if isJSON {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" && !req.Binary {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(HeaderRequestID, requestID)
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

// expireSession tears the session down and schedules the forced login.
// Every auth failure schedules its own navigation.
func (c *Client) expireSession(ctx context.Context, requestID string) {
	if c.session != nil {
		if err := c.session.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear session after auth failure",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
	}
	if c.redirector == nil {
		return
	}
	redirector := c.redirector

	c.mu.Lock()
	id := c.nextTask
	c.nextTask++
	c.mu.Unlock()

	// A task drops its own entry when it fires; fired covers a scheduler
	// that runs fn before After returns.
	var fired atomic.Bool
	task := c.scheduler.After(c.redirectDelay, func() {
		fired.Store(true)
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		redirector.ForceLogin()
	})

	c.mu.Lock()
	if !fired.Load() {
		if c.pending == nil {
			c.pending = make(map[uint64]Task)
		}
		c.pending[id] = task
	}
	c.mu.Unlock()
}

// fail reports apiErr and returns it.
func (c *Client) fail(req Request, apiErr *Error, requestID string, start time.Time) error {
	apiErr.RequestID = requestID
	c.notifier.Notify(notify.Notification{
		Severity: notify.SeverityError,
		Message:  apiErr.Message,
		Duration: c.notifyDuration,
	})
	c.logger.Warn("api call failed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", apiErr.Status),
		zap.String("kind", apiErr.Kind.String()),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
		zap.Error(apiErr.Err),
	)
	return apiErr
}
