package shared

import "sync/atomic"

// ScriptRunner is the minimal surface the GUI invoker needs from whatever
// script runner currently owns the worker thread: a way to report that a
// GUI-thread call timed out without tearing down the whole agent.
type ScriptRunner interface {
	ReportTimeout(callDescription string)
}

// CurrentScriptRunner is a scoped, process-wide register for the script
// runner that currently owns the worker thread, mirroring the single active
// runner the original agent always executes under. It is safe for
// concurrent use; only one caller should hold the scope at a time.
type CurrentScriptRunner struct {
	v atomic.Pointer[ScriptRunner]
}

// Enter installs runner as current and returns a function that restores the
// previous value; callers should defer the returned function.
func (c *CurrentScriptRunner) Enter(runner ScriptRunner) func() {
	prev := c.v.Load()
	c.v.Store(&runner)
	return func() {
		if prev == nil {
			c.v.Store(nil)
			return
		}
		c.v.Store(prev)
	}
}

// Get returns the currently installed runner, or nil if none is active.
func (c *CurrentScriptRunner) Get() ScriptRunner {
	p := c.v.Load()
	if p == nil {
		return nil
	}
	return *p
}
