package guiexec

import (
	"context"
	"errors"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/shared"
)

// ErrGUIThreadReentry is returned when the GUI thread itself calls a
// blocking invoke method; only the worker thread may block waiting for the
// GUI thread.
var ErrGUIThreadReentry = errors.New("guiexec: GUI thread may not call a blocking invoke")

// ErrTimeout is returned by RunInGuiWithTimeout when f has not completed
// within the requested budget. f is not cancelled; it remains queued and
// may complete later.
var ErrTimeout = errors.New("guiexec: timed out waiting for GUI thread")

// ModalProbe snapshots an identity for "the currently active modal window",
// cheaply and without side effects, so the invoker can tell whether a
// posted closure opened a nested dialog.
type ModalProbe interface {
	CurrentModalIdentity() any
}

// markerIdlePoll is how long the two-stage wait in RunInGuiWithTimeout
// waits, once, for the marker closure to start; if it has not started by
// then, no nested modal loop is assumed.
const markerIdlePoll = 20 * time.Millisecond

// eventPumpInterval is how often RunInGuiWithTimeout re-checks completion
// once a nested modal has been detected (see spec §4.2).
const eventPumpInterval = 100 * time.Millisecond

// Invoker implements the GUI Invoker contract: run a closure on the GUI
// thread and block the calling (worker) thread for its result.
type Invoker struct {
	loop  *Loop
	probe ModalProbe
}

// NewInvoker binds an invoker to loop's queue and a modal probe.
func NewInvoker(loop *Loop, probe ModalProbe) *Invoker {
	return &Invoker{loop: loop, probe: probe}
}

// RunInGui posts f to the GUI thread and blocks until it completes.
func (inv *Invoker) RunInGui(ctx context.Context, f func()) error {
	if onGUIThread(ctx) {
		return ErrGUIThreadReentry
	}
	done := shared.NewSemaphore(0)
	inv.loop.Post(func() {
		f()
		done.Release(1)
	})
	done.Acquire(1)
	return nil
}

// RunInGuiWithTimeout posts f to the GUI thread and waits up to timeout for
// it to complete. If f opens a nested modal event loop the worker waits in
// 100ms slices, re-checking completion after each, instead of in one
// blocking wait; see spec §4.2 for the two-stage detection algorithm.
func (inv *Invoker) RunInGuiWithTimeout(ctx context.Context, f func(), timeout time.Duration) error {
	if onGUIThread(ctx) {
		return ErrGUIThreadReentry
	}

	var before any
	_ = inv.RunInGui(ctx, func() { before = inv.probe.CurrentModalIdentity() })

	doneSem := shared.NewSemaphore(0)
	startedSem := shared.NewSemaphore(0)
	inv.loop.Post(func() {
		f()
		doneSem.Release(1)
	})
	inv.loop.Post(func() {
		startedSem.Release(1)
	})

	markerStarted := startedSem.TryAcquire(1, markerIdlePoll)

	var after any
	modalChanged := false
	if markerStarted {
		_ = inv.RunInGui(ctx, func() { after = inv.probe.CurrentModalIdentity() })
		modalChanged = before != after
	}

	if !markerStarted || !modalChanged {
		if doneSem.TryAcquire(1, timeout) {
			return nil
		}
		return ErrTimeout
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if doneSem.TryAcquire(1, eventPumpInterval) {
			return nil
		}
	}
	return ErrTimeout
}
