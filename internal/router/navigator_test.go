// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu     sync.Mutex
	authed bool
	admin  bool
}

func (f *fakeAuth) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authed
}

func (f *fakeAuth) IsAdmin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admin
}

func (f *fakeAuth) set(authed, admin bool) {
	f.mu.Lock()
	f.authed, f.admin = authed, admin
	f.mu.Unlock()
}

func TestNavigator_FollowsRedirects(t *testing.T) {
	auth := &fakeAuth{}
	nav := NewNavigator(NewGuard(nil), auth)

	res, err := nav.Navigate("/admin/logs")
	require.NoError(t, err)
	assert.Equal(t, "/login?redirect=%2Fadmin%2Flogs", res.Final.FullPath())
	assert.True(t, res.Redirected())
	require.Len(t, res.Hops, 2)
	assert.Equal(t, ReasonLoginRequired, res.Hops[0].Decision.Reason)
	assert.Equal(t, ReasonPublic, res.Hops[1].Decision.Reason)
	assert.Equal(t, RouteLogin, res.Match.Descriptor.Name)
	assert.Equal(t, res.Final, nav.Current())
}

func TestNavigator_MemberToAdminLandsHome(t *testing.T) {
	auth := &fakeAuth{authed: true}
	nav := NewNavigator(NewGuard(nil), auth)

	res, err := nav.Navigate("/admin")
	require.NoError(t, err)
	assert.Equal(t, "/", res.Final.FullPath())
	assert.Equal(t, RouteChat, res.Match.Descriptor.Name)
}

func TestNavigator_ShareModePersists(t *testing.T) {
	auth := &fakeAuth{}
	nav := NewNavigator(NewGuard(nil), auth)

	_, err := nav.Navigate("/share/abc")
	require.NoError(t, err)
	assert.True(t, nav.State().ShareMode)

	auth.set(true, false)
	res, err := nav.Navigate("/login")
	require.NoError(t, err)
	assert.Equal(t, "/login", res.Final.FullPath())
	assert.True(t, nav.State().ShareMode)
}

func TestNavigator_RedirectLoop(t *testing.T) {
	table := MustTable(
		Descriptor{Name: "Login", Path: "/login", Access: AccessAuthenticated},
		Descriptor{Name: "Home", Path: "/", Access: AccessAuthenticated},
	)
	nav := NewNavigator(NewGuard(table), &fakeAuth{}, WithMaxHops(3), WithStart(MustLocation("/start")))

	_, err := nav.Navigate("/")
	require.ErrorIs(t, err, ErrRedirectLoop)
	assert.Equal(t, "/start", nav.Current().FullPath())
}

func TestNavigator_ForceLogin(t *testing.T) {
	auth := &fakeAuth{authed: true}
	var results []Result
	nav := NewNavigator(NewGuard(nil), auth, WithObserver(func(r Result) {
		results = append(results, r)
	}))

	_, err := nav.Navigate("/share/abc")
	require.NoError(t, err)
	require.True(t, nav.State().ShareMode)

	auth.set(false, false)
	nav.ForceLogin()

	assert.Equal(t, "/login", nav.Current().FullPath())
	assert.False(t, nav.State().ShareMode)
	require.Len(t, results, 2)
	assert.Equal(t, "/login", results[1].Final.FullPath())
}

func TestNavigator_InvalidLocation(t *testing.T) {
	nav := NewNavigator(nil, nil)
	_, err := nav.Navigate("http://example.com/")
	assert.Error(t, err)
	assert.Equal(t, "/", nav.Current().FullPath())
}

func TestNavigator_ConcurrentNavigations(t *testing.T) {
	nav := NewNavigator(NewGuard(nil), &fakeAuth{authed: true, admin: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := "/admin/logs"
			if i%2 == 0 {
				path = "/profile"
			}
			_, err := nav.Navigate(path)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Contains(t, []string{"/admin/logs", "/profile"}, nav.Current().Path)
}
