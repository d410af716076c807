// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/1186985905/YinLang/internal/api"
	"github.com/1186985905/YinLang/internal/session"
)

// Caller is the part of *api.Client the service needs.
type Caller interface {
	Do(ctx context.Context, req api.Request) (*api.Response, error)
	Download(ctx context.Context, path string, params api.Params) (*api.Binary, error)
}

// Establisher records a successful login. *session.Store satisfies it.
type Establisher interface {
	Establish(ctx context.Context, credential string, identity session.User) error
}

// ErrMissingToken is returned when a login reply carries no token.
var ErrMissingToken = errors.New("login reply has no token")

// Service exposes the backend endpoints.
type Service struct {
	c Caller
}

// New creates a Service over c.
func New(c Caller) *Service {
	return &Service{c: c}
}

// call issues one request and decodes the envelope data into out (if
// non-nil).
func (s *Service) call(ctx context.Context, op string, req api.Request, out any) error {
	resp, err := s.c.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func seg(v string) string { return url.PathEscape(v) }

func id(v int64) string { return strconv.FormatInt(v, 10) }

// optString yields nil for "" so the pipeline drops the param.
func optString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges credentials for a token and identity.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	err := s.call(ctx, "login", api.Request{
		Method: http.MethodPost,
		Path:   "/api/users/login",
		Body:   LoginRequest{Username: username, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login: %w", ErrMissingToken)
	}
	return &out, nil
}

// SignIn logs in and establishes the session in est.
func (s *Service) SignIn(ctx context.Context, est Establisher, username, password string) (*LoginResult, error) {
	res, err := s.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := est.Establish(ctx, res.Token, res.User); err != nil {
		return res, fmt.Errorf("establish session: %w", err)
	}
	return res, nil
}

// Profile returns the authenticated user.
func (s *Service) Profile(ctx context.Context) (*session.User, error) {
	var out session.User
	if err := s.call(ctx, "get profile", api.Request{Method: http.MethodGet, Path: "/api/users/profile"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// USERS
// =============================================================================

// ListUsers returns one page of users matching q.
func (s *Service) ListUsers(ctx context.Context, q UserQuery) ([]session.User, error) {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	var out []session.User
	err := s.call(ctx, "list users", api.Request{
		Method: http.MethodGet,
		Path:   "/api/users",
		Params: api.Params{
			"username":     optString(q.Username),
			"departmentId": q.DepartmentID,
			"startTime":    optString(q.StartTime),
			"endTime":      optString(q.EndTime),
			"pageNum":      page,
			"pageSize":     size,
		},
	}, &out)
	return out, err
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, userID int64) (*session.User, error) {
	var out session.User
	if err := s.call(ctx, "get user", api.Request{Method: http.MethodGet, Path: "/api/users/" + id(userID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser creates a user.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*session.User, error) {
	var out session.User
	if err := s.call(ctx, "create user", api.Request{Method: http.MethodPost, Path: "/api/users", Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser updates a user's department and optionally password.
func (s *Service) UpdateUser(ctx context.Context, userID int64, in UserUpdate) (*session.User, error) {
	var out session.User
	if err := s.call(ctx, "update user", api.Request{Method: http.MethodPut, Path: "/api/users/" + id(userID), Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser deletes a user.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	return s.call(ctx, "delete user", api.Request{Method: http.MethodDelete, Path: "/api/users/" + id(userID)}, nil)
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

// ListDepartments returns every department.
func (s *Service) ListDepartments(ctx context.Context) ([]session.Department, error) {
	var out []session.Department
	err := s.call(ctx, "list departments", api.Request{Method: http.MethodGet, Path: "/api/departments"}, &out)
	return out, err
}

// GetDepartment returns one department.
func (s *Service) GetDepartment(ctx context.Context, deptID int64) (*session.Department, error) {
	var out session.Department
	if err := s.call(ctx, "get department", api.Request{Method: http.MethodGet, Path: "/api/departments/" + id(deptID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDepartment creates a department.
func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (*session.Department, error) {
	var out session.Department
	if err := s.call(ctx, "create department", api.Request{Method: http.MethodPost, Path: "/api/departments", Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDepartment renames or redescribes a department.
func (s *Service) UpdateDepartment(ctx context.Context, deptID int64, in DepartmentInput) (*session.Department, error) {
	var out session.Department
	if err := s.call(ctx, "update department", api.Request{Method: http.MethodPut, Path: "/api/departments/" + id(deptID), Body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDepartment deletes a department.
func (s *Service) DeleteDepartment(ctx context.Context, deptID int64) error {
	return s.call(ctx, "delete department", api.Request{Method: http.MethodDelete, Path: "/api/departments/" + id(deptID)}, nil)
}

// ListPrompts returns the department's prompt templates.
func (s *Service) ListPrompts(ctx context.Context, deptID int64) ([]Prompt, error) {
	var out []Prompt
	err := s.call(ctx, "list prompts", api.Request{Method: http.MethodGet, Path: "/api/departments/" + id(deptID) + "/prompts"}, &out)
	for i := range out {
		out[i].DepartmentID = deptID
	}
	return out, err
}

// AddPrompt adds a prompt template to p.DepartmentID.
func (s *Service) AddPrompt(ctx context.Context, p Prompt) (*Prompt, error) {
	var out Prompt
	path := "/api/departments/" + id(p.DepartmentID) + "/prompts"
	if err := s.call(ctx, "add prompt", api.Request{Method: http.MethodPost, Path: path, Body: p}, &out); err != nil {
		return nil, err
	}
	out.DepartmentID = p.DepartmentID
	return &out, nil
}

// UpdatePrompt replaces a prompt template.
func (s *Service) UpdatePrompt(ctx context.Context, p Prompt) (*Prompt, error) {
	var out Prompt
	path := "/api/departments/" + id(p.DepartmentID) + "/prompts/" + id(p.ID)
	if err := s.call(ctx, "update prompt", api.Request{Method: http.MethodPut, Path: path, Body: p}, &out); err != nil {
		return nil, err
	}
	out.DepartmentID = p.DepartmentID
	return &out, nil
}

// DeletePrompt removes a prompt template.
func (s *Service) DeletePrompt(ctx context.Context, deptID, promptID int64) error {
	path := "/api/departments/" + id(deptID) + "/prompts/" + id(promptID)
	return s.call(ctx, "delete prompt", api.Request{Method: http.MethodDelete, Path: path}, nil)
}

// =============================================================================
// CHAT
// =============================================================================

// ListSessions returns chat sessions, optionally for one user.
func (s *Service) ListSessions(ctx context.Context, userID *int64) ([]ChatSession, error) {
	var out []ChatSession
	err := s.call(ctx, "list chat sessions", api.Request{
		Method: http.MethodGet,
		Path:   "/api/chat/sessions",
		Params: api.Params{"userId": userID},
	}, &out)
	return out, err
}

// CreateSession opens a new chat session.
func (s *Service) CreateSession(ctx context.Context, modelType string, userID *int64) (*ChatSession, error) {
	var out ChatSession
	err := s.call(ctx, "create chat session", api.Request{
		Method: http.MethodPost,
		Path:   "/api/chat/session",
		Params: api.Params{"modelType": optString(modelType), "userId": userID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns a session's history.
func (s *Service) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	var out []Message
	err := s.call(ctx, "get chat messages", api.Request{Method: http.MethodGet, Path: "/api/chat/messages/" + seg(sessionID)}, &out)
	return out, err
}

// DeleteSession deletes a chat session.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	return s.call(ctx, "delete chat session", api.Request{Method: http.MethodDelete, Path: "/api/chat/session/" + seg(sessionID)}, nil)
}

// RenameSession sets a session's title.
func (s *Service) RenameSession(ctx context.Context, sessionID, title string) (*ChatSession, error) {
	var out ChatSession
	err := s.call(ctx, "rename chat session", api.Request{
		Method: http.MethodPut,
		Path:   "/api/chat/session/" + seg(sessionID) + "/title",
		Body:   map[string]string{"title": title},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage sends a message and waits for the complete reply.
func (s *Service) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := s.call(ctx, "send chat message", api.Request{Method: http.MethodPost, Path: "/api/chat/message", Body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartStream primes the backend to stream the reply to req. The reply is
// then read with stream.Dialer.Open(ctx, req.SessionID).
func (s *Service) StartStream(ctx context.Context, req ChatRequest) error {
	return s.call(ctx, "start chat stream", api.Request{Method: http.MethodPost, Path: "/api/chat/stream", Body: req}, nil)
}

// ChatModels lists the model types chat sessions can use.
func (s *Service) ChatModels(ctx context.Context) ([]string, error) {
	var out []string
	err := s.call(ctx, "list chat models", api.Request{Method: http.MethodGet, Path: "/api/chat/models"}, &out)
	return out, err
}

// =============================================================================
// SHARE
// =============================================================================

// SharedMessages returns the messages of a shared conversation.
func (s *Service) SharedMessages(ctx context.Context, shareID string) ([]Message, error) {
	var out []Message
	err := s.call(ctx, "get shared messages", api.Request{Method: http.MethodGet, Path: "/share/api/" + seg(shareID)}, &out)
	return out, err
}

// SharedSession returns the metadata of a shared conversation.
func (s *Service) SharedSession(ctx context.Context, shareID string) (*ChatSession, error) {
	var out ChatSession
	if err := s.call(ctx, "get shared session", api.Request{Method: http.MethodGet, Path: "/share/api/session/" + seg(shareID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// MODELS / FILES
// =============================================================================

// ListModels returns configured models. params are passed through.
func (s *Service) ListModels(ctx context.Context, params api.Params) ([]Model, error) {
	var out []Model
	err := s.call(ctx, "list models", api.Request{Method: http.MethodGet, Path: "/models", Params: params}, &out)
	return out, err
}

// AddModel registers a model.
func (s *Service) AddModel(ctx context.Context, m Model) (*Model, error) {
	var out Model
	if err := s.call(ctx, "add model", api.Request{Method: http.MethodPost, Path: "/models", Body: m}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteModel removes a model.
func (s *Service) DeleteModel(ctx context.Context, modelID int64) error {
	return s.call(ctx, "delete model", api.Request{Method: http.MethodDelete, Path: "/models/" + id(modelID)}, nil)
}

// UpdateModelStatus enables or disables a model.
func (s *Service) UpdateModelStatus(ctx context.Context, modelID int64, status string) error {
	return s.call(ctx, "update model status", api.Request{
		Method: http.MethodPatch,
		Path:   "/models/" + id(modelID) + "/status",
		Body:   map[string]string{"status": status},
	}, nil)
}

// DownloadFile fetches an uploaded file unmodified.
func (s *Service) DownloadFile(ctx context.Context, fileID string) (*api.Binary, error) {
	bin, err := s.c.Download(ctx, "/api/file/download/"+seg(fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	return bin, nil
}

// Download fetches an arbitrary backend path unmodified.
func (s *Service) Download(ctx context.Context, path string) (*api.Binary, error) {
	bin, err := s.c.Download(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return bin, nil
}
