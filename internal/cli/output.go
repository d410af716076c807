// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/1186985905/YinLang/internal/util"
)

// =============================================================================
// TABLES
// =============================================================================

// maxCellWidth caps a column so one long title cannot push the rest off screen.
const maxCellWidth = 40

// table is a plain column layout. Widths are measured in terminal cells so
// CJK session titles and usernames line up.
type table struct {
	header []string
	rows   [][]string
}

func newTable(header ...string) *table {
	return &table{header: header}
}

func (t *table) Row(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) Render(w io.Writer) {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for ri, row := range t.rows {
		cells := make([]string, len(t.header))
		for i := range cells {
			if i < len(row) {
				cells[i] = runewidth.Truncate(strings.ReplaceAll(row[i], "\n", " "), maxCellWidth, "…")
			}
			if cw := runewidth.StringWidth(cells[i]); cw > widths[i] {
				widths[i] = cw
			}
		}
		t.rows[ri] = cells
	}

	writeRow := func(cells []string, style func(string) string) {
		var b strings.Builder
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			padded := c
			if i < len(cells)-1 {
				padded = runewidth.FillRight(c, widths[i])
			}
			b.WriteString(style(padded))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	writeRow(t.header, func(s string) string { return SectionStyle.Render(s) })
	for _, row := range t.rows {
		writeRow(row, func(s string) string { return s })
	}
	if len(t.rows) == 0 {
		fmt.Fprintln(w, DimStyle.Render("(none)"))
	}
}

// field prints one "label value" line.
func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", RenderLabel(label), ValueStyle.Render(value))
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders message content for terminal display. It returns
// the content unchanged when rendering fails.
func renderMarkdown(content string, width int) string {
	if width <= 0 || width > 100 {
		width = 100
	}
	style := "dark"
	if !ColorsEnabled() {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}

// =============================================================================
// CLIPBOARD
// =============================================================================

// copyToClipboard is swapped in tests; headless hosts have no clipboard.
var copyToClipboard = clipboard.WriteAll

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// preview shortens content to one line for listings.
func preview(content string) string {
	return util.Truncate(strings.Join(strings.Fields(content), " "), 60)
}

// orDash returns "-" for empty strings.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
