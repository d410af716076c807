// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"net/url"
	"strings"
)

// ============================================================================
// ACCESS CLASS
// ============================================================================

// AccessClass is the access policy attached to a route.
type AccessClass int

const (
	// AccessUnclassified marks a route declared without access metadata.
	// Such routes, and paths matching no route at all, proceed by default.
	AccessUnclassified AccessClass = iota
	// AccessPublic routes are reachable without a session.
	AccessPublic
	// AccessAuthenticated routes require a valid session.
	AccessAuthenticated
	// AccessAdmin routes require a valid session with the admin role.
	AccessAdmin
)

// String returns the access class name.
func (a AccessClass) String() string {
	switch a {
	case AccessUnclassified:
		return "unclassified"
	case AccessPublic:
		return "public"
	case AccessAuthenticated:
		return "authenticated"
	case AccessAdmin:
		return "admin"
	default:
		return fmt.Sprintf("AccessClass(%d)", int(a))
	}
}

// RequiresAuth reports whether the class needs a valid session.
func (a AccessClass) RequiresAuth() bool {
	return a == AccessAuthenticated || a == AccessAdmin
}

// ============================================================================
// DESCRIPTOR / LOCATION
// ============================================================================

// Descriptor declares one view. Path uses {name} placeholders, e.g.
// "/share/{shareId}". ShareEntry marks the public shared-link entry point.
type Descriptor struct {
	Name       string
	Path       string
	Access     AccessClass
	ShareEntry bool
}

// Location is a navigation target: a path and its query.
type Location struct {
	Path  string
	Query url.Values
}

// ParseLocation parses "/path?query". The path is normalised: a missing
// leading slash is added and a trailing slash is dropped.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{Path: "/"}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid location %q: %w", raw, err)
	}
	if u.Scheme != "" || u.Host != "" {
		return Location{}, fmt.Errorf("invalid location %q: must be a path", raw)
	}
	loc := Location{Path: cleanPath(u.Path)}
	if q := u.Query(); len(q) > 0 {
		loc.Query = q
	}
	return loc, nil
}

// MustLocation is ParseLocation for literals known to be valid.
func MustLocation(raw string) Location {
	loc, err := ParseLocation(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// FullPath returns the path followed by the encoded query, if any.
func (l Location) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// String implements fmt.Stringer.
func (l Location) String() string { return l.FullPath() }

func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// ============================================================================
// STATE / PRINCIPAL / DECISION
// ============================================================================

// State is the navigation context the Guard threads through decisions.
// ShareMode is set by visiting the share entry route and never cleared
// for the lifetime of the owning Navigator.
type State struct {
	ShareMode bool
}

// Principal is the session as the Guard sees it.
type Principal struct {
	Authenticated bool
	Admin         bool
}

// Action is the outcome kind of a decision.
type Action int

const (
	// ActionProceed lets the transition complete.
	ActionProceed Action = iota
	// ActionRedirect replaces the target with Decision.Target.
	ActionRedirect
)

// String returns "proceed" or "redirect".
func (a Action) String() string {
	if a == ActionRedirect {
		return "redirect"
	}
	return "proceed"
}

// Reason explains a decision. Values are stable and safe to log.
type Reason string

const (
	ReasonShareEntry    Reason = "share-entry"
	ReasonShareMode     Reason = "share-mode"
	ReasonPublic        Reason = "public"
	ReasonAlreadyAuthed Reason = "already-authenticated"
	ReasonLoginRequired Reason = "login-required"
	ReasonAdminRequired Reason = "admin-required"
	ReasonAuthorized    Reason = "authorized"
	ReasonUnclassified  Reason = "unclassified"
)

// Decision is the Guard's verdict for one transition.
type Decision struct {
	Action Action
	Target Location // set for ActionRedirect
	Reason Reason
}

// Proceed builds a proceed decision.
func Proceed(reason Reason) Decision {
	return Decision{Action: ActionProceed, Reason: reason}
}

// RedirectTo builds a redirect decision.
func RedirectTo(target Location, reason Reason) Decision {
	return Decision{Action: ActionRedirect, Target: target, Reason: reason}
}

// Match is a Location resolved against the Table.
type Match struct {
	Descriptor Descriptor
	Vars       map[string]string
	Matched    bool
}

// Access returns the match's access class; unmatched paths are
// AccessUnclassified.
func (m Match) Access() AccessClass {
	if !m.Matched {
		return AccessUnclassified
	}
	return m.Descriptor.Access
}
