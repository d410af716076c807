// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/1186985905/YinLang/internal/api"
	"github.com/1186985905/YinLang/internal/config"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend answers the endpoints the commands call. Tokens are
// "tok-<username>"; "admin" is the only admin account and every
// password is "secret".
type fakeBackend struct {
	srv *httptest.Server

	mu      sync.Mutex
	revoked map[string]bool

	userListCalls atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{revoked: map[string]bool{}}

	r := chi.NewRouter()
	r.Post("/api/users/login", fb.login)
	r.Get("/share/api/session/{shareId}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "shareId") != "abc" {
			envelope(w, 404, "分享不存在", nil)
			return
		}
		envelope(w, 200, "success", map[string]any{"id": "s1", "title": "周报草稿"})
	})
	r.Get("/share/api/{shareId}", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, 200, "success", []map[string]any{
			{"id": 1, "sessionId": "s1", "role": "user", "content": "写一份周报"},
			{"id": 2, "sessionId": "s1", "role": "assistant", "content": "本周完成了登录模块"},
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(fb.requireToken)
		r.Get("/api/users/profile", func(w http.ResponseWriter, r *http.Request) {
			envelope(w, 200, "success", userFor(usernameOf(r)))
		})
		r.Get("/api/users", func(w http.ResponseWriter, r *http.Request) {
			fb.userListCalls.Add(1)
			envelope(w, 200, "success", []map[string]any{userFor("admin"), userFor("张伟")})
		})
		r.Get("/api/chat/models", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, []string{"deepseek", "qianwen"})
		})
		r.Get("/api/chat/sessions", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, []map[string]any{{"id": "s1", "title": "新对话", "defaultModelType": "deepseek"}})
		})
		r.Post("/api/chat/stream", func(w http.ResponseWriter, r *http.Request) {
			envelope(w, 200, "success", "started")
		})
		r.Get("/api/file/download/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 fake"))
		})
	})

	r.Get("/api/chat/stream/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"你好", "，世界"} {
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) URL() string { return fb.srv.URL }

// revoke makes the backend reject username's token with 401.
func (fb *fakeBackend) revoke(username string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.revoked[username] = true
}

func (fb *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if body.Password != "secret" {
		envelope(w, 401, "用户名或密码错误", nil)
		return
	}
	envelope(w, 200, "success", map[string]any{"token": "tok-" + body.Username, "user": userFor(body.Username)})
}

func (fb *fakeBackend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := usernameOf(r)
		fb.mu.Lock()
		revoked := fb.revoked[name]
		fb.mu.Unlock()
		if name == "" || revoked {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func usernameOf(r *http.Request) string {
	return strings.TrimPrefix(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "), "tok-")
}

func userFor(username string) map[string]any {
	role := "user"
	if username == "admin" {
		role = "admin"
	}
	return map[string]any{"id": len(username), "username": username, "role": role, "email": username + "@example.com"}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func envelope(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, map[string]any{"code": code, "message": msg, "data": data})
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	t       *testing.T
	backend *fakeBackend
	cfgPath string
	sched   *api.ManualScheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ForceColorsEnabled(false)

	fb := newFakeBackend(t)
	dir := t.TempDir()
	cfg := config.Default()
	cfg.BaseURL = fb.URL()
	cfg.Storage.Driver = config.DriverFile
	cfg.Storage.Path = filepath.Join(dir, "session")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(cfg, path))

	return &harness{t: t, backend: fb, cfgPath: path, sched: api.NewManualScheduler()}
}

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes the command line with stdin as input.
func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config", h.cfgPath, "--no-color"}, args...)
	code := Execute(context.Background(), full, IOStreams{
		In:     strings.NewReader(stdin),
		Out:    &out,
		ErrOut: &errOut,
	}, WithAppScheduler(h.sched))
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// login logs username in and fails the test otherwise.
func (h *harness) login(username string) {
	h.t.Helper()
	res := h.run("secret\n", "login", username)
	require.Equal(h.t, ExitSuccess, res.code, res.stderr)
}

// decodeJSON parses a --json response, decoding its data into v.
func decodeJSON(t *testing.T, raw string, v any) JSONResponse {
	t.Helper()
	var resp struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v), string(resp.Data))
	}
	return resp.JSONResponse
}
