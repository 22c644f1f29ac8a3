// Package guiexec implements the cross-thread invocation contract between
// the agent's worker thread and its GUI thread: post a closure and block
// for its result, including a timed variant that tolerates a closure that
// opens a nested modal event loop.
package guiexec

import (
	"context"
	"time"
)

type guiThreadKey struct{}

// WithGUIThread marks ctx as originating from the GUI thread's own call
// stack, so RunInGui[WithTimeout] can reject reentrant calls.
func WithGUIThread(ctx context.Context) context.Context {
	return context.WithValue(ctx, guiThreadKey{}, true)
}

func onGUIThread(ctx context.Context) bool {
	v, _ := ctx.Value(guiThreadKey{}).(bool)
	return v
}

// Loop is the GUI thread's native event queue: closures posted to it run in
// post order, one at a time, on whatever goroutine calls Run. A closure
// running on the loop MAY itself call RunNested to simulate a toolkit modal
// dialog pumping its own nested loop before returning.
type Loop struct {
	jobs chan func()
}

// NewLoop creates an unstarted loop with room for a generous backlog of
// posted closures.
func NewLoop() *Loop {
	return &Loop{jobs: make(chan func(), 4096)}
}

// Post enqueues f to run on the loop goroutine.
func (l *Loop) Post(f func()) {
	l.jobs <- f
}

// Run services posted closures until stop is closed. This is the outermost,
// non-nested call and should run for the agent's lifetime on a dedicated
// goroutine representing the GUI thread.
func (l *Loop) Run(stop <-chan struct{}) {
	for {
		select {
		case job := <-l.jobs:
			job()
		case <-stop:
			return
		}
	}
}

// RunNested services posted closures until stop is closed. It is meant to
// be called from inside a closure running on the loop, to model a toolkit
// widget (e.g. a modal dialog) that blocks its caller while still pumping
// the native event queue.
func (l *Loop) RunNested(stop <-chan struct{}) {
	for {
		select {
		case job := <-l.jobs:
			job()
		case <-stop:
			return
		}
	}
}

// RunNestedFor services posted closures for exactly d, then returns. A
// modal-dialog fake that wants to simulate a dialog open for a bounded
// window calls this in a loop.
func (l *Loop) RunNestedFor(d time.Duration) {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	for {
		select {
		case job := <-l.jobs:
			job()
		case <-deadline.C:
			return
		}
	}
}
