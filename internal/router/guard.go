// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "net/url"

// Default guard targets.
const (
	DefaultLoginPath     = "/login"
	DefaultHomePath      = "/"
	DefaultRedirectParam = "redirect"
)

// Guard evaluates transitions against a Table. It holds no mutable state;
// Decide is a pure function of its arguments.
type Guard struct {
	table         *Table
	loginPath     string
	homePath      string
	redirectParam string
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLoginPath overrides the login redirect target.
func WithLoginPath(p string) GuardOption {
	return func(g *Guard) { g.loginPath = cleanPath(p) }
}

// WithHomePath overrides the home redirect target.
func WithHomePath(p string) GuardOption {
	return func(g *Guard) { g.homePath = cleanPath(p) }
}

// WithRedirectParam overrides the query key that carries the original target.
func WithRedirectParam(key string) GuardOption {
	return func(g *Guard) {
		if key != "" {
			g.redirectParam = key
		}
	}
}

// NewGuard creates a guard over table. A nil table means DefaultTable.
func NewGuard(table *Table, opts ...GuardOption) *Guard {
	if table == nil {
		table = DefaultTable()
	}
	g := &Guard{
		table:         table,
		loginPath:     DefaultLoginPath,
		homePath:      DefaultHomePath,
		redirectParam: DefaultRedirectParam,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Table returns the guard's route table.
func (g *Guard) Table() *Table { return g.table }

// LoginPath returns the login redirect target.
func (g *Guard) LoginPath() string { return g.loginPath }

// HomePath returns the home redirect target.
func (g *Guard) HomePath() string { return g.homePath }

// Decide resolves one transition. It returns the decision and the state
// to carry into the next transition. No rule currently depends on from.
func (g *Guard) Decide(st State, p Principal, from, to Location) (Decision, State) {
	m := g.table.Match(to)

	if m.Matched && m.Descriptor.ShareEntry {
		st.ShareMode = true
		return Proceed(ReasonShareEntry), st
	}

	access := m.Access()

	if st.ShareMode && !access.RequiresAuth() {
		return Proceed(ReasonShareMode), st
	}

	switch access {
	case AccessPublic:
		if p.Authenticated && cleanPath(to.Path) == g.loginPath {
			return RedirectTo(Location{Path: g.homePath}, ReasonAlreadyAuthed), st
		}
		return Proceed(ReasonPublic), st

	case AccessAuthenticated, AccessAdmin:
		if !p.Authenticated {
			return RedirectTo(g.loginFor(to), ReasonLoginRequired), st
		}
		if access == AccessAdmin && !p.Admin {
			return RedirectTo(Location{Path: g.homePath}, ReasonAdminRequired), st
		}
		return Proceed(ReasonAuthorized), st
	}

	return Proceed(ReasonUnclassified), st
}

func (g *Guard) loginFor(to Location) Location {
	return Location{
		Path:  g.loginPath,
		Query: url.Values{g.redirectParam: []string{to.FullPath()}},
	}
}

// RedirectTarget extracts the post-login destination from a login
// location, falling back to home.
func (g *Guard) RedirectTarget(login Location) Location {
	if raw := login.Query.Get(g.redirectParam); raw != "" {
		if loc, err := ParseLocation(raw); err == nil {
			return loc
		}
	}
	return Location{Path: g.homePath}
}
