// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// admin_cmd.go - users, departments and models.
//
// Admin data commands enter their admin page through the guard before
// calling the backend, so a member gets the same answer the web client
// gives instead of a 403 that would end the session.

package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/1186985905/YinLang/internal/api"
	"github.com/1186985905/YinLang/internal/backend"
	"github.com/1186985905/YinLang/internal/router"
)

// ErrAdminRequired is returned when the guard sends a non-admin home.
var ErrAdminRequired = errors.New("this page requires an admin account")

// enterPage navigates to path and fails unless the guard lets the
// navigation proceed where it was aimed.
func enterPage(app *App, path string) error {
	res, err := app.Navigator.Navigate(path)
	if err != nil {
		return err
	}
	if !res.Redirected() {
		return nil
	}
	switch res.Hops[0].Decision.Reason {
	case router.ReasonLoginRequired:
		return ErrNotLoggedIn
	case router.ReasonAdminRequired:
		return ErrAdminRequired
	default:
		return fmt.Errorf("page %s redirected to %s", path, res.Final.FullPath())
	}
}

func parseID(field, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, &UsageError{Field: field, Value: raw, Reason: "must be a positive integer"}
	}
	return v, nil
}

// =============================================================================
// USERS
// =============================================================================

func newUsersCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users (admin)",
	}
	cmd.AddCommand(newUsersListCommand(rt), newUsersGetCommand(rt), newUsersDeleteCommand(rt))
	return cmd
}

func newUsersListCommand(rt *runtime) *cobra.Command {
	var (
		q    backend.UserQuery
		dept int64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			if err := enterPage(app, "/admin/user-management"); err != nil {
				return err
			}
			if cmd.Flags().Changed("department") {
				q.DepartmentID = &dept
			}
			users, err := app.Service.ListUsers(ctx, q)
			if err != nil {
				return err
			}
			return rt.emit(cmd, users, func(w io.Writer) {
				t := newTable("ID", "USERNAME", "ROLE", "DEPARTMENT", "LAST LOGIN")
				for _, u := range users {
					deptName := "-"
					if u.Department != nil {
						deptName = u.Department.Name
					}
					t.Row(strconv.FormatInt(u.ID, 10), u.Username, orDash(u.Role), deptName, orDash(u.LastLoginTime))
				}
				t.Render(w)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Username, "username", "", "filter by username")
	f.Int64Var(&dept, "department", 0, "filter by department id")
	f.StringVar(&q.StartTime, "since", "", "created at or after (yyyy-MM-dd HH:mm:ss)")
	f.StringVar(&q.EndTime, "until", "", "created at or before (yyyy-MM-dd HH:mm:ss)")
	f.IntVar(&q.Page, "page", 1, "page number")
	f.IntVar(&q.PageSize, "size", 10, "page size")
	return cmd
}

func newUsersGetCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <userId>",
		Short: "Show one user",
		Args:  exactArgs(1, "userId"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := parseID("userId", args[0])
			if err != nil {
				return err
			}
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			if err := enterPage(app, "/admin/user-management"); err != nil {
				return err
			}
			u, err := app.Service.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			return rt.emit(cmd, u, func(w io.Writer) {
				field(w, "ID", strconv.FormatInt(u.ID, 10))
				field(w, "Username", u.Username)
				field(w, "Role", orDash(u.Role))
				field(w, "Email", orDash(u.Email))
				if u.Department != nil {
					field(w, "Department", u.Department.Name)
				}
				if u.Status != nil {
					field(w, "Enabled", strconv.FormatBool(*u.Status))
				}
				field(w, "Last login", orDash(u.LastLoginTime))
			})
		},
	}
}

func newUsersDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <userId>",
		Short: "Delete a user",
		Args:  exactArgs(1, "userId"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := parseID("userId", args[0])
			if err != nil {
				return err
			}
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			if err := enterPage(app, "/admin/user-management"); err != nil {
				return err
			}
			if err := app.Service.DeleteUser(ctx, userID); err != nil {
				return err
			}
			return rt.emit(cmd, map[string]int64{"deleted": userID}, func(w io.Writer) {
				fmt.Fprintf(w, "%s deleted user %d\n", RenderStatus("ok"), userID)
			})
		},
	}
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

func newDepartmentsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "Browse departments and their prompts (admin)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List departments",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				app, err := rt.App(ctx)
				if err != nil {
					return err
				}
				if err := enterPage(app, "/admin/department-management"); err != nil {
					return err
				}
				depts, err := app.Service.ListDepartments(ctx)
				if err != nil {
					return err
				}
				return rt.emit(cmd, depts, func(w io.Writer) {
					t := newTable("ID", "NAME", "DESCRIPTION")
					for _, d := range depts {
						t.Row(strconv.FormatInt(d.ID, 10), d.Name, orDash(d.Description))
					}
					t.Render(w)
				})
			},
		},
		&cobra.Command{
			Use:   "prompts <departmentId>",
			Short: "List a department's prompt templates",
			Args:  exactArgs(1, "departmentId"),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				deptID, err := parseID("departmentId", args[0])
				if err != nil {
					return err
				}
				app, err := rt.App(ctx)
				if err != nil {
					return err
				}
				if err := enterPage(app, "/admin/prompt-config"); err != nil {
					return err
				}
				prompts, err := app.Service.ListPrompts(ctx, deptID)
				if err != nil {
					return err
				}
				return rt.emit(cmd, prompts, func(w io.Writer) {
					t := newTable("ID", "TITLE", "CONTENT")
					for _, p := range prompts {
						t.Row(strconv.FormatInt(p.ID, 10), p.Title, preview(p.Content))
					}
					t.Render(w)
				})
			},
		},
	)
	return cmd
}

// =============================================================================
// MODELS
// =============================================================================

func newModelsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List chat models",
	}

	var configured bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List the model types available to chat",
		Long: `List the model types available to chat.

With --configured, list the admin model configuration instead
(provider, status), which requires an admin account.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.App(ctx)
			if err != nil {
				return err
			}

			if !configured {
				if err := enterPage(app, "/model-access"); err != nil {
					return err
				}
				types, err := app.Service.ChatModels(ctx)
				if err != nil {
					return err
				}
				return rt.emit(cmd, types, func(w io.Writer) {
					t := newTable("MODEL TYPE")
					for _, m := range types {
						t.Row(m)
					}
					t.Render(w)
				})
			}

			if err := enterPage(app, "/admin/model-config"); err != nil {
				return err
			}
			models, err := app.Service.ListModels(ctx, api.Params{})
			if err != nil {
				return err
			}
			return rt.emit(cmd, models, func(w io.Writer) {
				t := newTable("ID", "NAME", "TYPE", "PROVIDER", "STATUS")
				for _, m := range models {
					t.Row(strconv.FormatInt(m.ID, 10), m.ModelName, m.ModelType, orDash(m.Provider), orDash(m.Status))
				}
				t.Render(w)
			})
		},
	}
	list.Flags().BoolVar(&configured, "configured", false, "list the admin model configuration")
	cmd.AddCommand(list)
	return cmd
}
