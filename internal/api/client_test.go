// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1186985905/YinLang/internal/notify"
	"github.com/1186985905/YinLang/internal/session"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type harness struct {
	client    *Client
	store     *session.Store
	notes     *notify.Recorder
	scheduler *ManualScheduler
	logins    *atomic.Int32
	server    *httptest.Server
}

func newHarness(t *testing.T, r chi.Router, opts ...Option) *harness {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	store, err := session.NewStore(context.Background(), session.NewMemoryRepository())
	require.NoError(t, err)

	h := &harness{
		store:     store,
		notes:     &notify.Recorder{},
		scheduler: NewManualScheduler(),
		logins:    &atomic.Int32{},
		server:    srv,
	}
	base := []Option{
		WithNotifier(h.notes),
		WithScheduler(h.scheduler),
		WithRedirector(RedirectorFunc(func() { h.logins.Add(1) })),
	}
	h.client = NewClient(srv.URL, store, append(base, opts...)...)
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func login(t *testing.T, h *harness) {
	t.Helper()
	require.NoError(t, h.store.Establish(context.Background(), "tok-123", session.User{Username: "alice", Role: "user"}))
}

// =============================================================================
// OUTBOUND
// =============================================================================

func TestClient_StripsNilParams(t *testing.T) {
	var rawQuery string
	r := chi.NewRouter()
	r.Get("/api/items", func(w http.ResponseWriter, req *http.Request) {
		rawQuery = req.URL.RawQuery
		writeJSON(w, http.StatusOK, []int{})
	})
	h := newHarness(t, r)

	_, err := h.client.Get(context.Background(), "/api/items", Params{"a": 1, "b": nil, "c": nil, "d": "x"})
	require.NoError(t, err)
	assert.Equal(t, "a=1&d=x", rawQuery)
}

func TestClient_BearerHeader(t *testing.T) {
	var auth []string
	r := chi.NewRouter()
	r.Get("/api/users/profile", func(w http.ResponseWriter, req *http.Request) {
		auth = append(auth, req.Header.Get("Authorization"))
		assert.NotEmpty(t, req.Header.Get(HeaderRequestID))
		writeJSON(w, http.StatusOK, map[string]any{"username": "alice"})
	})
	h := newHarness(t, r)
	ctx := context.Background()

	_, err := h.client.Get(ctx, "/api/users/profile", nil)
	require.NoError(t, err)

	login(t, h)
	_, err = h.client.Get(ctx, "/api/users/profile", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer tok-123"}, auth)
}

func TestClient_JSONBody(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/users/login", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		writeJSON(w, http.StatusOK, map[string]any{"token": "t"})
	})
	h := newHarness(t, r)

	resp, err := h.client.Post(context.Background(), "/api/users/login", map[string]string{"username": "alice"})
	require.NoError(t, err)

	var out struct{ Token string }
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "t", out.Token)
}

// =============================================================================
// INBOUND
// =============================================================================

func TestClient_WrapsBareArray(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/departments", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, "[1,2,3]")
	})
	h := newHarness(t, r)

	resp, err := h.client.Get(context.Background(), "/api/departments", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.True(t, resp.Wrapped)
	assert.JSONEq(t, "[1,2,3]", string(resp.Data))
	assert.Zero(t, h.notes.Len())
}

func TestClient_EnvelopeSuccessReturnedAsIs(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/thing", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": map[string]int{"n": 7}, "message": "ok"})
	})
	h := newHarness(t, r)

	resp, err := h.client.Get(context.Background(), "/api/thing", nil)
	require.NoError(t, err)
	assert.False(t, resp.Wrapped)
	assert.Equal(t, "ok", resp.Message)

	var out struct{ N int }
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, 7, out.N)
}

func TestClient_EnvelopeFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/fail", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 500, "message": "boom"})
	})
	h := newHarness(t, r)
	login(t, h)

	_, err := h.client.Get(context.Background(), "/api/fail", nil)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, ErrServer)

	notes := h.notes.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "boom", notes[0].Message)
	assert.Equal(t, notify.SeverityError, notes[0].Severity)
	assert.Equal(t, notify.DefaultDuration, notes[0].Duration)

	assert.True(t, h.store.IsAuthenticated(), "envelope failures never clear the session")
	assert.Zero(t, h.scheduler.Pending())
}

func TestClient_EnvelopeFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		kind    error
		message string
	}{
		{"400", map[string]any{"code": 400, "message": "bad name"}, ErrValidation, "bad name"},
		{"404", map[string]any{"code": 404}, ErrNotFound, MsgRequestFailed},
		{"401 is not auth", map[string]any{"code": 401, "message": "nope"}, ErrServer, "nope"},
		{"string code", map[string]any{"code": "E42", "message": "odd"}, ErrServer, "odd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/x", func(w http.ResponseWriter, req *http.Request) {
				writeJSON(w, http.StatusOK, tt.payload)
			})
			h := newHarness(t, r)

			_, err := h.client.Get(context.Background(), "/x", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, 1, h.notes.Len())
		})
	}
}

func TestClient_Download(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}
	r := chi.NewRouter()
	r.Get("/files/report.pdf", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(payload)
	})
	h := newHarness(t, r)

	bin, err := h.client.Download(context.Background(), "/files/report.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", bin.ContentType)
	assert.Equal(t, payload, bin.Body)
}

func TestClient_DownloadJSONIsNotUnwrapped(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/export", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 500, "message": "looks like failure"})
	})
	h := newHarness(t, r)

	bin, err := h.client.Download(context.Background(), "/export", nil)
	require.NoError(t, err)
	assert.Contains(t, string(bin.Body), "looks like failure")
	assert.Zero(t, h.notes.Len())
}

// =============================================================================
// TRANSPORT FAILURES
// =============================================================================

func TestClient_StatusFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		kind    error
		message string
	}{
		{"400 backend message", 400, map[string]string{"message": "username taken"}, ErrValidation, "username taken"},
		{"400 default", 400, nil, ErrValidation, MsgBadRequest},
		{"404", 404, map[string]string{"message": "ignored"}, ErrNotFound, MsgNotFound},
		{"500", 500, map[string]string{"message": "ignored"}, ErrServer, MsgServerError},
		{"other with message", 418, map[string]string{"message": "teapot"}, ErrServer, "teapot"},
		{"other default", 502, nil, ErrServer, "request failed (502)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/x", func(w http.ResponseWriter, req *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, tt.status, tt.body)
			})
			h := newHarness(t, r)
			login(t, h)

			_, err := h.client.Get(context.Background(), "/x", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.NotEmpty(t, apiErr.RequestID)

			assert.Equal(t, 1, h.notes.Len())
			assert.True(t, h.store.IsAuthenticated())
			assert.Zero(t, h.scheduler.Pending())
		})
	}
}

func TestClient_UnauthorizedClearsSessionAndSchedulesLogin(t *testing.T) {
	for _, tt := range []struct {
		status  int
		message string
	}{
		{http.StatusUnauthorized, MsgUnauthorized},
		{http.StatusForbidden, MsgForbidden},
	} {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/users", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
			})
			h := newHarness(t, r)
			login(t, h)

			_, err := h.client.Get(context.Background(), "/api/users", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuth)
			assert.Equal(t, tt.message, err.Error())

			assert.False(t, h.store.IsAuthenticated())
			assert.Empty(t, h.store.Token())

			tasks := h.scheduler.Tasks()
			require.Len(t, tasks, 1)
			assert.Equal(t, DefaultRedirectDelay, tasks[0].Delay)
			assert.Zero(t, h.logins.Load(), "login must wait for the delay")

			assert.Equal(t, 1, h.scheduler.RunPending())
			assert.Equal(t, int32(1), h.logins.Load())

			notes := h.notes.All()
			require.Len(t, notes, 1)
			assert.Equal(t, tt.message, notes[0].Message)
		})
	}
}

func TestClient_EachAuthFailureSchedulesItsOwnLogin(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/x", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := newHarness(t, r)

	for i := 0; i < 3; i++ {
		_, err := h.client.Get(context.Background(), "/x", nil)
		require.ErrorIs(t, err, ErrAuth)
	}
	assert.Equal(t, 3, h.scheduler.Pending())
}

func TestClient_FiredLoginsAreForgotten(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/x", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := newHarness(t, r)

	for i := 0; i < 50; i++ {
		_, err := h.client.Get(context.Background(), "/x", nil)
		require.ErrorIs(t, err, ErrAuth)
	}
	assert.Equal(t, 50, h.client.pendingLogins())

	assert.Equal(t, 50, h.scheduler.RunPending())
	assert.Zero(t, h.client.pendingLogins())
	assert.Equal(t, int32(50), h.logins.Load())

	_, err := h.client.Get(context.Background(), "/x", nil)
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 1, h.client.pendingLogins())
	h.client.Close()
	assert.Zero(t, h.client.pendingLogins())
}

func TestClient_SynchronousSchedulerLeavesNothingPending(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/x", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := newHarness(t, r, WithScheduler(runNow{}))

	_, err := h.client.Get(context.Background(), "/x", nil)
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(1), h.logins.Load())
	assert.Zero(t, h.client.pendingLogins())
}

// runNow runs every task inside After.
type runNow struct{}

type ranTask struct{}

func (ranTask) Cancel() bool { return false }

func (runNow) After(_ time.Duration, fn func()) Task {
	fn()
	return ranTask{}
}

func TestClient_CloseCancelsPendingLogins(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/x", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := newHarness(t, r)

	_, err := h.client.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	h.client.Close()

	assert.Zero(t, h.scheduler.Pending())
	assert.Zero(t, h.scheduler.RunPending())
	assert.Zero(t, h.logins.Load())
}

func TestClient_NetworkError(t *testing.T) {
	h := newHarness(t, chi.NewRouter())
	h.server.Close()

	_, err := h.client.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, MsgNetworkError, apiErr.Message)
	assert.Zero(t, apiErr.Status)
	assert.Equal(t, 1, h.notes.Len())
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	r := chi.NewRouter()
	r.Get("/slow", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	})
	h := newHarness(t, r, WithTimeout(50*time.Millisecond))
	defer close(release)

	start := time.Now()
	_, err := h.client.Get(context.Background(), "/slow", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_RequestNotBuilt(t *testing.T) {
	h := newHarness(t, chi.NewRouter())

	_, err := h.client.Post(context.Background(), "/x", map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "encode request body")
	assert.Equal(t, 1, h.notes.Len())
}

func TestClient_RateLimitRespectsContext(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/x", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, []int{})
	})
	h := newHarness(t, r, WithRateLimit(0.001, 1), WithTimeout(100*time.Millisecond))

	_, err := h.client.Get(context.Background(), "/x", nil)
	require.NoError(t, err)

	_, err = h.client.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(1), hits.Load())
}

func TestError_IsMatchesKind(t *testing.T) {
	err := error(&Error{Kind: KindNotFound, Message: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrServer))

	cause := errors.New("dial failed")
	wrapped := &Error{Kind: KindNetwork, Message: MsgNetworkError, Err: cause}
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, MsgNetworkError+": dial failed", wrapped.Error())
	assert.Equal(t, "not_found", KindNotFound.String())
}
