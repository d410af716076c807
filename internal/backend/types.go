// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "github.com/1186985905/YinLang/internal/session"

// =============================================================================
// AUTH / USERS
// =============================================================================

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the data returned by a successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// UserQuery filters GET /api/users. Zero values are omitted.
type UserQuery struct {
	Username     string
	DepartmentID *int64
	StartTime    string
	EndTime      string
	Page         int
	PageSize     int
}

// UserInput is the body for creating a user.
type UserInput struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	DepartmentID *int64 `json:"departmentId,omitempty"`
}

// UserUpdate is the body for updating a user. An empty password keeps the
// current one.
type UserUpdate struct {
	DepartmentID *int64 `json:"departmentId"`
	Password     string `json:"password,omitempty"`
}

// =============================================================================
// DEPARTMENTS / PROMPTS
// =============================================================================

// DepartmentInput is the body for creating or updating a department.
type DepartmentInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Prompt is a department prompt template.
type Prompt struct {
	ID           int64  `json:"id,omitempty"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	DepartmentID int64  `json:"-"`
}

// =============================================================================
// CHAT
// =============================================================================

// DefaultSessionTitle is the title the backend gives new sessions.
const DefaultSessionTitle = "新对话"

// ChatSession is one conversation.
type ChatSession struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	UserID           *int64 `json:"userId,omitempty"`
	DefaultModelType string `json:"defaultModelType,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// Message is one stored chat message.
type Message struct {
	ID        int64  `json:"id"`
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	ModelType string `json:"modelType,omitempty"`
	ModelName string `json:"modelName,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ChatRequest is the body of POST /api/chat/message and /api/chat/stream.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	ModelType string `json:"modelType,omitempty"`
	ModelName string `json:"modelName,omitempty"`
}

// ChatResponse is the reply to a non-streaming message.
type ChatResponse struct {
	SessionID    string `json:"sessionId"`
	MessageID    int64  `json:"messageId"`
	Content      string `json:"content"`
	ModelType    string `json:"modelType"`
	ModelName    string `json:"modelName"`
	ResponseTime string `json:"responseTime,omitempty"`
}

// =============================================================================
// MODELS
// =============================================================================

// Model is an admin-configured model entry.
type Model struct {
	ID        int64  `json:"id,omitempty"`
	ModelName string `json:"modelName"`
	ModelType string `json:"modelType"`
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	APIKey    string `json:"apiKey,omitempty"`
}
