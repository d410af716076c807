// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AlignsWideCharacters(t *testing.T) {
	ForceColorsEnabled(false)

	tb := newTable("ID", "TITLE", "MODEL")
	tb.Row("s1", "周报草稿", "deepseek")
	tb.Row("s22", "plan", "qianwen")

	var buf bytes.Buffer
	tb.Render(&buf)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "s1   周报草稿  deepseek", lines[1])
	assert.Equal(t, "s22  plan      qianwen", lines[2])
	col := strings.Index(lines[2], "qianwen")
	assert.Equal(t, col, runewidth.StringWidth(lines[1][:strings.Index(lines[1], "deepseek")]))
}

func TestTable_TruncatesAndFlattensCells(t *testing.T) {
	ForceColorsEnabled(false)

	tb := newTable("TITLE")
	tb.Row(strings.Repeat("长", 30))
	tb.Row("two\nlines")

	var buf bytes.Buffer
	tb.Render(&buf)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.LessOrEqual(t, runewidth.StringWidth(lines[1]), maxCellWidth)
	assert.True(t, strings.HasSuffix(lines[1], "…"))
	assert.Equal(t, "two lines", lines[2])
}

func TestTable_Empty(t *testing.T) {
	ForceColorsEnabled(false)

	var buf bytes.Buffer
	newTable("ID", "NAME").Render(&buf)
	assert.Contains(t, buf.String(), "(none)")
}

func TestRenderMarkdown_PlainWhenColorsOff(t *testing.T) {
	ForceColorsEnabled(false)

	out := renderMarkdown("**本周**完成了登录模块", 80)
	assert.Contains(t, out, "本周")
	assert.Contains(t, out, "完成了登录模块")
}

func TestOrDashAndPreview(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x", orDash("x"))
	assert.Equal(t, "short", preview("short"))
	assert.Len(t, []rune(preview(strings.Repeat("字", 100))), 60)
}
