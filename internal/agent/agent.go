// Package agent wires together the event analyzer, script interpreter and
// script API surface on the target side, and drives the controller
// connection: install the event analyzer, wait for a RunScript packet,
// evaluate it, and report back NewUserAppEvent/ScriptError/ScriptEnd/ScriptLog.
package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/guiexec"
	"github.com/ehrlich-b/deskmonkey/internal/interp"
	"github.com/ehrlich-b/deskmonkey/internal/logging"
	"github.com/ehrlich-b/deskmonkey/internal/recorder"
	"github.com/ehrlich-b/deskmonkey/internal/scriptapi"
	"github.com/ehrlich-b/deskmonkey/internal/scriptrun"
	"github.com/ehrlich-b/deskmonkey/internal/shared"
	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
	"github.com/ehrlich-b/deskmonkey/internal/wire"
)

// drainTimeout bounds the post-script GUI-thread sync that lets any
// pending user-visible events reach the recorder before ScriptEnd is
// reported, per spec.md §4.7.
const drainTimeout = 10 * time.Second

// Agent owns C1 through C8 on the target side: the event analyzer that
// records user gestures, the interpreter that replays scripts, and the
// wire channel to the controller.
type Agent struct {
	app     toolkit.Application
	synth   toolkit.InputSynth
	invoker *guiexec.Invoker
	channel *wire.Channel

	analyzer *recorder.Analyzer
	current  shared.CurrentScriptRunner

	tracing     atomic.Bool
	shotCfg     scriptrun.ScreenshotConfig
	snapshotter scriptrun.Snapshotter

	mu              sync.Mutex
	pendingFileName string
}

// New builds an Agent and its event analyzer, but does not yet attach a
// wire channel; call Attach once a connection exists (see wire.Dial /
// wire.Listener.AcceptOnce).
func New(app toolkit.Application, synth toolkit.InputSynth, invoker *guiexec.Invoker) *Agent {
	a := &Agent{app: app, synth: synth, invoker: invoker}
	a.analyzer = recorder.NewAnalyzer(app, a.onUserEventInScriptForm, a.sendLog)
	return a
}

// Analyzer returns the event analyzer driving recording, so a toolkit
// adapter's event filter can forward events to it.
func (a *Agent) Analyzer() *recorder.Analyzer { return a.analyzer }

// SetTracing toggles per-operation checkpoint logging for scripts run from
// now on.
func (a *Agent) SetTracing(on bool) { a.tracing.Store(on) }

// SetScreenshots configures checkpoint screenshot dumping for scripts run
// from now on.
func (a *Agent) SetScreenshots(cfg scriptrun.ScreenshotConfig, snap scriptrun.Snapshotter) {
	a.shotCfg = cfg
	a.snapshotter = snap
}

// Attach binds ch as the agent's connection to the controller, used for
// every outgoing packet. Incoming packets reach HandlePacket on ch's own
// read-loop goroutine (ch must be created with HandlePacket as its
// onPacket callback), which plays the role of the worker thread: at most one RunScript is handled at a
// time, synchronously, blocking further packet processing until it
// completes.
func (a *Agent) Attach(ch *wire.Channel) {
	a.channel = ch
}

// HandlePacket is wire.NewChannel's onPacket callback.
func (a *Agent) HandlePacket(p wire.Packet) {
	switch wire.ToAgent(p.Type) {
	case wire.SetScriptFileName:
		a.mu.Lock()
		a.pendingFileName = p.Payload
		a.mu.Unlock()
	case wire.RunScript:
		a.runScript(p.Payload)
	case wire.CloseAck:
		// handled internally by wire.Channel's read loop.
	default:
		logging.Debug("agent: ignoring unknown packet type", "type", p.Type)
	}
}

// HandleError is wire.NewChannel's onError callback.
func (a *Agent) HandleError(err error) {
	logging.Error("agent: channel error", "err", err)
}

func (a *Agent) onUserEventInScriptForm(script string) {
	if script == "" {
		return
	}
	if a.channel != nil {
		_ = a.channel.Send(uint32(wire.NewUserAppEvent), script)
	}
}

func (a *Agent) sendLog(msg string) {
	if a.channel != nil {
		_ = a.channel.Send(uint32(wire.ScriptLog), msg)
	}
}

// runScript evaluates one script fragment: fresh interpreter, fresh
// scriptrun.Runner, fresh scriptapi.Surface, all scoped to this single
// RunScript dispatch.
func (a *Agent) runScript(code string) {
	a.mu.Lock()
	fileName := a.pendingFileName
	a.mu.Unlock()

	runner := scriptrun.New(interp.NewStatementInterpreter(), &a.current)
	runner.SetTracing(a.tracing.Load())
	if a.shotCfg.Dir != "" {
		runner.SetScreenshots(a.shotCfg, a.snapshotter)
	}

	surface := scriptapi.New(a.app, a.synth, a.invoker, runner, a.sendLog)

	failure := runner.Run(fileName, code, surface.Dispatch)
	if failure != nil {
		msg := fmt.Sprintf("%s\nat %s:%d: %s\n%s", failure.ExceptionMessage,
			fileName, failure.ExceptionLine, failure.ExceptionLineText,
			joinBacktrace(failure.Backtrace))
		if a.channel != nil {
			_ = a.channel.Send(uint32(wire.ScriptError), msg)
		}
	} else {
		a.syncWithGui()
	}

	if a.channel != nil {
		_ = a.channel.Send(uint32(wire.ScriptEnd), "")
	}
}

func joinBacktrace(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// syncWithGui drains the GUI thread's event queue for up to drainTimeout so
// events the script triggered reach the recorder before ScriptEnd is
// observed by the controller.
func (a *Agent) syncWithGui() {
	err := a.invoker.RunInGuiWithTimeout(context.Background(), func() {}, drainTimeout)
	if err != nil {
		logging.Warn("agent: gui drain sync timed out", "err", err)
	}
}

// Shutdown issues a Close packet and waits, bounded, for the controller's
// CloseAck before the caller tears the connection down.
func (a *Agent) Shutdown(wait time.Duration) error {
	if a.channel == nil {
		return nil
	}
	return a.channel.Close(wait)
}
