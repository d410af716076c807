// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"sync"
	"time"
)

// Task is a scheduled callback.
type Task interface {
	// Cancel stops the task. It reports false if the task already ran or
	// was cancelled.
	Cancel() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	After(d time.Duration, fn func()) Task
}

// Redirector performs the forced navigation to the login view.
type Redirector interface {
	ForceLogin()
}

// RedirectorFunc adapts a function to Redirector.
type RedirectorFunc func()

// ForceLogin calls f.
func (f RedirectorFunc) ForceLogin() { f() }

// =============================================================================
// TIMER SCHEDULER
// =============================================================================

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

// After implements Scheduler.
func (TimerScheduler) After(d time.Duration, fn func()) Task {
	return timerTask{t: time.AfterFunc(d, fn)}
}

type timerTask struct {
	t *time.Timer
}

func (t timerTask) Cancel() bool { return t.t.Stop() }

// =============================================================================
// MANUAL SCHEDULER
// =============================================================================

// ManualScheduler records tasks and runs them only when told to. It lets
// tests assert on scheduled intent without waiting.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*ManualTask
}

// ManualTask is a task recorded by ManualScheduler.
type ManualTask struct {
	Delay time.Duration

	mu        sync.Mutex
	fn        func()
	done      bool
	cancelled bool
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After implements Scheduler.
func (s *ManualScheduler) After(d time.Duration, fn func()) Task {
	t := &ManualTask{Delay: d, fn: fn}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t
}

// Tasks returns every task scheduled so far.
func (s *ManualScheduler) Tasks() []*ManualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ManualTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Pending returns the number of tasks neither run nor cancelled.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.Tasks() {
		if t.Pending() {
			n++
		}
	}
	return n
}

// RunPending runs every pending task in scheduling order and returns how
// many ran.
func (s *ManualScheduler) RunPending() int {
	n := 0
	for _, t := range s.Tasks() {
		if t.Run() {
			n++
		}
	}
	return n
}

// Run executes the task if still pending.
func (t *ManualTask) Run() bool {
	t.mu.Lock()
	if t.done || t.cancelled {
		t.mu.Unlock()
		return false
	}
	t.done = true
	fn := t.fn
	t.mu.Unlock()
	fn()
	return true
}

// Cancel implements Task.
func (t *ManualTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// Pending reports whether the task has neither run nor been cancelled.
func (t *ManualTask) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.done && !t.cancelled
}
