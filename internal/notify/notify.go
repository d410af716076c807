// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify is the user-visible notification channel: single-shot
// transient messages with a severity and a display duration.
//
// The request pipeline calls a Notifier for every classified failure. The
// terminal client renders notifications with Console; tests collect them
// with Recorder.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/1186985905/YinLang/internal/util"
)

// DefaultDuration is how long a transient notification stays visible.
const DefaultDuration = 5 * time.Second

// maxMessageRunes caps a rendered notification line.
const maxMessageRunes = 200

// Severity ranks a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Notification is one transient message.
type Notification struct {
	Severity Severity
	Message  string
	Duration time.Duration
}

// Notifier shows notifications to the user. Implementations must be safe
// for concurrent use; the pipeline notifies from concurrent calls.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(n Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) { f(n) }

// Error builds an error-severity notification with the default duration.
func Error(message string) Notification {
	return Notification{Severity: SeverityError, Message: message, Duration: DefaultDuration}
}

// =============================================================================
// CONSOLE
// =============================================================================

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Console writes each notification as one styled line.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	plain bool
}

// NewConsole returns a Console writing to w. When plain is true no ANSI
// styling is emitted (piped output, NO_COLOR).
func NewConsole(w io.Writer, plain bool) *Console {
	return &Console{w: w, plain: plain}
}

// Notify implements Notifier.
func (c *Console) Notify(n Notification) {
	msg := strings.TrimSpace(n.Message)
	if msg == "" {
		return
	}
	msg = util.Truncate(strings.ReplaceAll(msg, "\n", " "), maxMessageRunes)

	tag := "[" + strings.ToUpper(n.Severity.String()) + "]"
	if !c.plain {
		tag = styleFor(n.Severity).Render(tag)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", tag, msg)
}

func styleFor(s Severity) lipgloss.Style {
	switch s {
	case SeveritySuccess:
		return successStyle
	case SeverityWarning:
		return warningStyle
	case SeverityError:
		return errorStyle
	default:
		return infoStyle
	}
}

// =============================================================================
// RECORDER / DISCARD
// =============================================================================

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns how many notifications were recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})
