// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// AdminRole is the role value that grants access to admin views.
const AdminRole = "admin"

// Department is the organisational unit a user belongs to.
type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// User is the identity returned by the backend at login. Only Username and
// Role are used by the session core; the rest is carried for display.
type User struct {
	ID            int64       `json:"id,omitempty"`
	Username      string      `json:"username"`
	Email         string      `json:"email,omitempty"`
	Role          string      `json:"role"`
	Avatar        string      `json:"avatar,omitempty"`
	Status        *bool       `json:"status,omitempty"`
	Department    *Department `json:"department,omitempty"`
	LastLoginTime string      `json:"lastLoginTime,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == AdminRole
}

// Session is a snapshot of the authentication state.
type Session struct {
	Credential string
	Identity   *User
	Valid      bool
}

// IsAdmin reports whether the session is valid and belongs to an admin.
func (s Session) IsAdmin() bool {
	return s.Valid && s.Identity.IsAdmin()
}

// Username returns the identity's username, or "" without one.
func (s Session) Username() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Username
}

// clone returns a snapshot that shares no memory with s.
func (s Session) clone() Session {
	if s.Identity != nil {
		u := *s.Identity
		if u.Department != nil {
			d := *u.Department
			u.Department = &d
		}
		if u.Status != nil {
			st := *u.Status
			u.Status = &st
		}
		s.Identity = &u
	}
	return s
}

func (s Session) equal(o Session) bool {
	if s.Valid != o.Valid || s.Credential != o.Credential {
		return false
	}
	if (s.Identity == nil) != (o.Identity == nil) {
		return false
	}
	if s.Identity == nil {
		return true
	}
	return s.Identity.ID == o.Identity.ID &&
		s.Identity.Username == o.Identity.Username &&
		s.Identity.Role == o.Identity.Role
}
