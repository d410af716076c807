// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// navigate_cmd.go - route guard inspection: navigate and routes.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/1186985905/YinLang/internal/router"
)

// =============================================================================
// NAVIGATION OUTPUT
// =============================================================================

type hopOutput struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Action string `json:"action"`
	Reason string `json:"reason"`
	Target string `json:"target,omitempty"`
}

type navigationOutput struct {
	Requested  string      `json:"requested"`
	Final      string      `json:"final"`
	Route      string      `json:"route,omitempty"`
	Access     string      `json:"access"`
	ShareMode  bool        `json:"share_mode"`
	Redirected bool        `json:"redirected"`
	Hops       []hopOutput `json:"hops"`
}

func toNavigationOutput(res router.Result, st router.State) navigationOutput {
	out := navigationOutput{
		Requested:  res.Requested.FullPath(),
		Final:      res.Final.FullPath(),
		Route:      res.Match.Descriptor.Name,
		Access:     res.Match.Access().String(),
		ShareMode:  st.ShareMode,
		Redirected: res.Redirected(),
	}
	for _, h := range res.Hops {
		hop := hopOutput{
			From:   h.From.FullPath(),
			To:     h.To.FullPath(),
			Action: h.Decision.Action.String(),
			Reason: string(h.Decision.Reason),
		}
		if h.Decision.Action == router.ActionRedirect {
			hop.Target = h.Decision.Target.FullPath()
		}
		out.Hops = append(out.Hops, hop)
	}
	return out
}

func printNavigation(w io.Writer, out navigationOutput) {
	for _, h := range out.Hops {
		line := fmt.Sprintf("%s %s", RenderStatus(h.Action), h.To)
		if h.Target != "" {
			line += " -> " + h.Target
		}
		fmt.Fprintf(w, "%s %s\n", line, DimStyle.Render("("+h.Reason+")"))
	}
	route := orDash(out.Route)
	mode := ""
	if out.ShareMode {
		mode = " " + WarningStyle.Render("[share mode]")
	}
	fmt.Fprintf(w, "%s %s %s%s\n", RenderLabel("Now at"), ValueStyle.Render(out.Final),
		DimStyle.Render(route+", "+out.Access), mode)
}

// =============================================================================
// NAVIGATE
// =============================================================================

func newNavigateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path> [path...]",
		Short: "Run paths through the page guard",
		Long: `Navigate to each path in turn, as a browser tab would, and print
every guard decision. State carries from one path to the next, so
"navigate /share/abc /admin" shows share mode at work.`,
		Example: `  yinlan navigate /admin/logs
  yinlan navigate "/login?redirect=/profile"
  yinlan navigate /share/abc /login`,
		Args: minArgs(1, "path"),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd.Context())
			if err != nil {
				return err
			}

			results := make([]navigationOutput, 0, len(args))
			for _, raw := range args {
				res, err := app.Navigator.Navigate(raw)
				if err != nil {
					return fmt.Errorf("navigate %s: %w", raw, err)
				}
				results = append(results, toNavigationOutput(res, app.Navigator.State()))
			}

			return rt.emit(cmd, results, func(w io.Writer) {
				for i, out := range results {
					if i > 0 {
						fmt.Fprintln(w)
					}
					printNavigation(w, out)
				}
			})
		},
	}
}

// =============================================================================
// ROUTES
// =============================================================================

type routeOutput struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Access     string `json:"access"`
	ShareEntry bool   `json:"share_entry,omitempty"`
}

func newRoutesCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the pages the guard knows",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd.Context())
			if err != nil {
				return err
			}
			var routes []routeOutput
			for _, d := range app.Navigator.Guard().Table().Descriptors() {
				routes = append(routes, routeOutput{
					Name:       d.Name,
					Path:       d.Path,
					Access:     d.Access.String(),
					ShareEntry: d.ShareEntry,
				})
			}
			return rt.emit(cmd, routes, func(w io.Writer) {
				t := newTable("NAME", "PATH", "ACCESS")
				for _, r := range routes {
					access := r.Access
					if r.ShareEntry {
						access += " (share entry)"
					}
					t.Row(r.Name, r.Path, access)
				}
				t.Render(w)
			})
		},
	}
}
