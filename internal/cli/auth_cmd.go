// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, logout and status.

package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/1186985905/YinLang/internal/router"
	"github.com/1186985905/YinLang/internal/session"
	"github.com/1186985905/YinLang/internal/util"
)

// =============================================================================
// LOGIN
// =============================================================================

type loginOutput struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Landing  string `json:"landing"`
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var redirect string

	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and store the session",
		Long: `Log in with a username and password.

The password is read without echo when stdin is a terminal, or as one
line from stdin otherwise. --redirect names the page to land on, the
way the web client returns to the page that sent you to login.`,
		Args: maxArgs(1, "username"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}

			p := newPrompter(rt.streams)
			username := ""
			if len(args) == 1 {
				username = args[0]
			} else if username, err = p.Line("Username: "); err != nil {
				return fmt.Errorf("read username: %w", err)
			}
			if username == "" {
				return &UsageError{Field: "username", Reason: "must not be empty"}
			}
			password, err := p.Password("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			res, err := app.Service.SignIn(ctx, app.Store, username, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			landing, err := landAfterLogin(app.Navigator, redirect)
			if err != nil {
				return err
			}

			out := loginOutput{Username: res.User.Username, Role: res.User.Role, Landing: landing}
			return rt.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s Logged in as %s (%s)\n", RenderStatus("ok"), out.Username, orDash(out.Role))
				field(w, "Landing page", out.Landing)
			})
		},
	}
	cmd.Flags().StringVar(&redirect, "redirect", "", "page to open after login")
	return cmd
}

// landAfterLogin resolves the post-login page the way the login view does:
// the redirect parameter if it is a local path, home otherwise. The result
// is then navigated so the guard has the final word.
func landAfterLogin(nav *router.Navigator, redirect string) (string, error) {
	login, err := router.ParseLocation(nav.Guard().LoginPath())
	if err != nil {
		return "", err
	}
	if redirect != "" {
		login.Query = url.Values{router.DefaultRedirectParam: {redirect}}
	}
	res, err := nav.NavigateTo(nav.Guard().RedirectTarget(login))
	if err != nil {
		return "", fmt.Errorf("navigate after login: %w", err)
	}
	return res.Final.FullPath(), nil
}

// =============================================================================
// LOGOUT
// =============================================================================

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			was := app.Store.Current().Username()
			if err := app.Store.Clear(ctx); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			return rt.emit(cmd, map[string]string{"username": was}, func(w io.Writer) {
				if was == "" {
					fmt.Fprintln(w, DimStyle.Render("No session was stored."))
					return
				}
				fmt.Fprintf(w, "%s Logged out %s\n", RenderStatus("ok"), was)
			})
		},
	}
}

// =============================================================================
// STATUS
// =============================================================================

type statusOutput struct {
	BaseURL       string        `json:"base_url"`
	Storage       string        `json:"storage"`
	Authenticated bool          `json:"authenticated"`
	Username      string        `json:"username,omitempty"`
	Role          string        `json:"role,omitempty"`
	Admin         bool          `json:"admin"`
	Token         string        `json:"token,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	Expired       bool          `json:"expired"`
	Profile       *session.User `json:"profile,omitempty"`
	Models        []string      `json:"models,omitempty"`
	Backend       string        `json:"backend"`
}

// statusTimeout bounds the whole status fan-out.
const statusTimeout = 10 * time.Second

func newStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session and check the backend",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}

			cur := app.Store.Current()
			out := statusOutput{
				BaseURL:       app.Config.BaseURL,
				Storage:       app.Config.Storage.Driver,
				Authenticated: cur.Valid,
				Username:      cur.Username(),
				Admin:         cur.IsAdmin(),
				Backend:       "skipped",
			}
			if cur.Identity != nil {
				out.Role = cur.Identity.Role
			}

			if cur.Valid {
				out.Token = util.MaskSecret(cur.Credential)
				if claims, err := session.ParseClaims(cur.Credential); err == nil && !claims.ExpiresAt.IsZero() {
					exp := claims.ExpiresAt
					out.ExpiresAt = &exp
					out.Expired = claims.Expired(time.Now())
				}
				out.Profile, out.Models, err = fetchStatus(ctx, app)
				if err != nil {
					out.Backend = "error: " + err.Error()
				} else {
					out.Backend = "ok"
				}
			}

			return rt.emit(cmd, out, func(w io.Writer) { printStatus(w, out) })
		},
	}
}

// fetchStatus loads the profile and the chat model list concurrently.
func fetchStatus(ctx context.Context, app *App) (*session.User, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	var (
		profile *session.User
		models  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = app.Service.Profile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		models, err = app.Service.ChatModels(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return profile, models, nil
}

func printStatus(w io.Writer, out statusOutput) {
	fmt.Fprintln(w, TitleStyle.Render("yinlan status"))
	fmt.Fprintln(w, RenderSeparator())
	field(w, "Backend URL", out.BaseURL)
	field(w, "Storage", out.Storage)
	if !out.Authenticated {
		field(w, "Session", "not logged in")
		return
	}
	field(w, "Session", fmt.Sprintf("%s (%s)", out.Username, orDash(out.Role)))
	field(w, "Token", out.Token)
	if out.ExpiresAt != nil {
		exp := out.ExpiresAt.Local().Format(time.RFC3339)
		if out.Expired {
			exp += " " + WarningStyle.Render("(expired)")
		}
		field(w, "Expires", exp)
	}
	if out.Profile != nil && out.Profile.Email != "" {
		field(w, "Email", out.Profile.Email)
	}
	if out.Profile != nil && out.Profile.Department != nil {
		field(w, "Department", out.Profile.Department.Name)
	}
	if len(out.Models) > 0 {
		field(w, "Models", fmt.Sprint(out.Models))
	}
	status := "ok"
	if out.Backend != "ok" {
		status = "fail"
	}
	fmt.Fprintf(w, "%s %s\n", RenderLabel("Backend"), RenderStatus(status)+" "+out.Backend)
}
