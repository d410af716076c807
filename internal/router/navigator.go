// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxHops bounds the redirects followed for one navigation.
const DefaultMaxHops = 8

// ErrRedirectLoop is returned when redirects exceed the hop limit.
var ErrRedirectLoop = errors.New("navigation redirect limit exceeded")

// Authenticator reports the current session. *session.Store satisfies it.
type Authenticator interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// Hop is one evaluated transition.
type Hop struct {
	From     Location
	To       Location
	Decision Decision
}

// Result describes a completed navigation.
type Result struct {
	Requested Location
	Final     Location
	Match     Match
	Hops      []Hop
}

// Redirected reports whether the final location differs from the request.
func (r Result) Redirected() bool {
	return len(r.Hops) > 1
}

// Navigator owns the current location and navigation State for one
// client. It is safe for concurrent use; navigations are serialised.
type Navigator struct {
	mu       sync.Mutex
	guard    *Guard
	auth     Authenticator
	state    State
	current  Location
	maxHops  int
	logger   *zap.Logger
	observer func(Result)
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithMaxHops overrides DefaultMaxHops.
func WithMaxHops(n int) NavigatorOption {
	return func(nv *Navigator) {
		if n > 0 {
			nv.maxHops = n
		}
	}
}

// WithNavigatorLogger sets the logger used for decisions.
func WithNavigatorLogger(l *zap.Logger) NavigatorOption {
	return func(nv *Navigator) {
		if l != nil {
			nv.logger = l
		}
	}
}

// WithObserver registers fn to receive every completed navigation.
// fn runs without the navigator lock held.
func WithObserver(fn func(Result)) NavigatorOption {
	return func(nv *Navigator) { nv.observer = fn }
}

// WithStart sets the initial location (default "/").
func WithStart(loc Location) NavigatorOption {
	return func(nv *Navigator) { nv.current = loc }
}

// NewNavigator creates a navigator. auth is consulted on every hop.
func NewNavigator(guard *Guard, auth Authenticator, opts ...NavigatorOption) *Navigator {
	if guard == nil {
		guard = NewGuard(nil)
	}
	nv := &Navigator{
		guard:   guard,
		auth:    auth,
		current: Location{Path: "/"},
		maxHops: DefaultMaxHops,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(nv)
	}
	return nv
}

// Navigate parses raw and navigates to it.
func (nv *Navigator) Navigate(raw string) (Result, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return Result{}, err
	}
	return nv.NavigateTo(loc)
}

// NavigateTo runs the guard on the transition to loc and follows
// redirects until a route proceeds. The current location is updated only
// when the navigation completes.
func (nv *Navigator) NavigateTo(loc Location) (Result, error) {
	nv.mu.Lock()
	res, err := nv.navigateLocked(loc)
	nv.mu.Unlock()
	if err == nil && nv.observer != nil {
		nv.observer(res)
	}
	return res, err
}

func (nv *Navigator) navigateLocked(loc Location) (Result, error) {
	from := nv.current
	to := loc
	res := Result{Requested: loc}
	state := nv.state

	for hop := 0; hop <= nv.maxHops; hop++ {
		dec, next := nv.guard.Decide(state, nv.principal(), from, to)
		res.Hops = append(res.Hops, Hop{From: from, To: to, Decision: dec})
		state = next

		nv.logger.Debug("navigation decision",
			zap.String("from", from.FullPath()),
			zap.String("to", to.FullPath()),
			zap.String("action", dec.Action.String()),
			zap.String("reason", string(dec.Reason)),
			zap.Bool("share_mode", state.ShareMode),
		)

		if dec.Action == ActionProceed {
			nv.state = state
			nv.current = to
			res.Final = to
			res.Match = nv.guard.Table().Match(to)
			return res, nil
		}
		to = dec.Target
	}

	// State changes from abandoned hops are kept; share mode is monotonic.
	nv.state = state
	return res, fmt.Errorf("%w: %d hops from %s to %s", ErrRedirectLoop, nv.maxHops, from.FullPath(), loc.FullPath())
}

func (nv *Navigator) principal() Principal {
	if nv.auth == nil {
		return Principal{}
	}
	authed := nv.auth.IsAuthenticated()
	return Principal{Authenticated: authed, Admin: authed && nv.auth.IsAdmin()}
}

// ForceLogin performs a hard navigation to the login view. Like a full
// page reload it starts a fresh navigation context, so share mode is
// dropped before the guard runs.
func (nv *Navigator) ForceLogin() {
	nv.mu.Lock()
	nv.state = State{}
	nv.current = Location{Path: "/"}
	res, err := nv.navigateLocked(Location{Path: nv.guard.LoginPath()})
	nv.mu.Unlock()
	if err != nil {
		nv.logger.Warn("forced login navigation failed", zap.Error(err))
		return
	}
	nv.logger.Info("forced navigation to login", zap.String("location", res.Final.FullPath()))
	if nv.observer != nil {
		nv.observer(res)
	}
}

// Current returns the current location.
func (nv *Navigator) Current() Location {
	nv.mu.Lock()
	defer nv.mu.Unlock()
	return nv.current
}

// State returns the current navigation state.
func (nv *Navigator) State() State {
	nv.mu.Lock()
	defer nv.mu.Unlock()
	return nv.state
}

// Guard returns the navigator's guard.
func (nv *Navigator) Guard() *Guard { return nv.guard }
