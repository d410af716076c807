// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

// Route names used by DefaultTable.
const (
	RouteLogin                = "Login"
	RouteChat                 = "Chat"
	RouteProfile              = "Profile"
	RouteModelAccess          = "ModelAccess"
	RouteShare                = "Share"
	RouteAdmin                = "Admin"
	RouteUserManagement       = "UserManagement"
	RouteLogs                 = "Logs"
	RoutePromptConfig         = "PromptConfig"
	RouteContentRecords       = "ContentRecords"
	RouteImageRecords         = "ImageRecords"
	RouteModelConfig          = "ModelConfig"
	RouteDepartmentManagement = "DepartmentManagement"
)

// ErrInvalidDescriptor is wrapped by NewTable for rejected declarations.
var ErrInvalidDescriptor = errors.New("invalid route descriptor")

// Table is an immutable set of route descriptors compiled for matching.
// Descriptors are matched in declaration order.
type Table struct {
	mux         *mux.Router
	descriptors []Descriptor
	byName      map[string]Descriptor
}

// NewTable compiles descriptors. Names must be unique and non-empty, and
// paths must be absolute templates accepted by gorilla/mux.
func NewTable(descriptors ...Descriptor) (*Table, error) {
	t := &Table{
		mux:         mux.NewRouter(),
		descriptors: make([]Descriptor, 0, len(descriptors)),
		byName:      make(map[string]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: empty name for path %q", ErrInvalidDescriptor, d.Path)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidDescriptor, d.Name)
		}
		if !strings.HasPrefix(d.Path, "/") {
			return nil, fmt.Errorf("%w: %s: path %q must start with /", ErrInvalidDescriptor, d.Name, d.Path)
		}
		route := t.mux.Path(d.Path).Name(d.Name)
		if err := route.GetError(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, d.Name, err)
		}
		t.descriptors = append(t.descriptors, d)
		t.byName[d.Name] = d
	}
	return t, nil
}

// MustTable is NewTable that panics on error.
func MustTable(descriptors ...Descriptor) *Table {
	t, err := NewTable(descriptors...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTable returns the application's route table.
func DefaultTable() *Table {
	return MustTable(
		Descriptor{Name: RouteLogin, Path: "/login", Access: AccessPublic},
		Descriptor{Name: RouteChat, Path: "/", Access: AccessAuthenticated},
		Descriptor{Name: RouteProfile, Path: "/profile", Access: AccessAuthenticated},
		Descriptor{Name: RouteModelAccess, Path: "/model-access", Access: AccessAuthenticated},
		Descriptor{Name: RouteShare, Path: "/share/{shareId}", Access: AccessPublic, ShareEntry: true},
		Descriptor{Name: RouteAdmin, Path: "/admin", Access: AccessAdmin},
		Descriptor{Name: RouteUserManagement, Path: "/admin/user-management", Access: AccessAdmin},
		Descriptor{Name: RouteLogs, Path: "/admin/logs", Access: AccessAdmin},
		Descriptor{Name: RoutePromptConfig, Path: "/admin/prompt-config", Access: AccessAdmin},
		Descriptor{Name: RouteContentRecords, Path: "/admin/content-records", Access: AccessAdmin},
		Descriptor{Name: RouteImageRecords, Path: "/admin/image-records", Access: AccessAdmin},
		Descriptor{Name: RouteModelConfig, Path: "/admin/model-config", Access: AccessAdmin},
		Descriptor{Name: RouteDepartmentManagement, Path: "/admin/department-management", Access: AccessAdmin},
	)
}

// Match resolves loc to its descriptor. Match.Matched is false when no
// descriptor applies.
func (t *Table) Match(loc Location) Match {
	req := &http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Path: cleanPath(loc.Path)},
		Header: http.Header{},
	}
	var rm mux.RouteMatch
	if !t.mux.Match(req, &rm) || rm.Route == nil {
		return Match{}
	}
	d, ok := t.byName[rm.Route.GetName()]
	if !ok {
		return Match{}
	}
	return Match{Descriptor: d, Vars: rm.Vars, Matched: true}
}

// Lookup returns the descriptor registered under name.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// Descriptors returns the declarations in order.
func (t *Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.descriptors))
	copy(out, t.descriptors)
	return out
}
