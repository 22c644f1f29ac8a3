// Package controller implements the C10 dispatcher: it owns the pending
// script queue, launches and relaunches the application under test, accepts
// the agent's wire connection, and drives scripts through one at a time in
// response to stdin commands and agent packets.
package controller

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/logging"
	"github.com/ehrlich-b/deskmonkey/internal/protocol"
	"github.com/ehrlich-b/deskmonkey/internal/scriptmodel"
	"github.com/ehrlich-b/deskmonkey/internal/wire"
)

// DefaultDrainDelay is how long the controller waits after the application
// exits, or after a script error, before acting on it further — enough time
// for any trailing output to be flushed.
const DefaultDrainDelay = 300 * time.Millisecond

// Config configures a Controller.
type Config struct {
	Launcher          AppLauncher
	ExitOnScriptError bool
	DrainDelay        time.Duration
	// Stdout receives the JSON-lines protocol output; diagnostics go
	// through the logging package instead.
	Stdout io.Writer
	// Exit is called exactly once, with the controller's final exit code,
	// when Run returns control to its caller. Tests substitute a recorder;
	// a real main wires this to os.Exit.
	Exit func(code int)
	// Observe, if set, is called once per packet/stdio line the controller
	// emits (kind is one of "event", "error", "log", "output", "scriptend").
	// It runs in its own goroutine so a slow history write or a stalled
	// observer broadcast can never hold up the dispatch loop.
	Observe func(kind, payload string)
	// OnDispatch, if set, is called once per fragment popped off the
	// queue and sent to the agent, for FragmentRecord persistence.
	OnDispatch func(fileName string, beginLine int, runAfterAppStart bool)
}

// Controller is the C10 dispatcher state machine.
type Controller struct {
	cfg Config

	mu            sync.Mutex
	queue         scriptmodel.PendingQueue
	connected     bool
	scriptRunning bool
	restartDone   bool
	channel       *wire.Channel
	proc          AppProcess
	exited        bool
	exitCode      int
	done          chan struct{}
}

// New builds a Controller. cfg.DrainDelay defaults to DefaultDrainDelay if
// zero; cfg.Exit defaults to a no-op if nil (callers that care read
// ExitCode after Run returns).
func New(cfg Config) *Controller {
	if cfg.DrainDelay == 0 {
		cfg.DrainDelay = DefaultDrainDelay
	}
	if cfg.Exit == nil {
		cfg.Exit = func(int) {}
	}
	return &Controller{cfg: cfg, done: make(chan struct{})}
}

// EnqueueScript queues a script fragment set for dispatch, mirroring
// stdinDataReady's effect once a "run script" command has been parsed.
func (c *Controller) EnqueueScript(fileName, code string) {
	c.mu.Lock()
	c.queue.EnqueueScript(fileName, code)
	c.mu.Unlock()
	c.onAgentReadyToRunScript()
}

// PendingCount reports how many fragments are queued, for tests and
// diagnostics.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Connected reports whether the current agent connection has been accepted.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ExitCode reports the code Run will return once hasExited is true.
func (c *Controller) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Run launches the application under test, accepts the agent connection,
// and services stdin commands until the run finishes (the application has
// exited with an empty queue, or a script error aborted the session with
// ExitOnScriptError set). It returns the final exit code.
func (c *Controller) Run(stdin io.Reader) (int, error) {
	if err := c.launch(); err != nil {
		return -1, err
	}

	go c.readStdin(stdin)

	<-c.done
	code := c.ExitCode()

	c.cfg.Exit(code)
	return code, nil
}

// readStdin runs for the lifetime of the process: once Run's exit condition
// is reached the caller is expected to exit the program, which reclaims
// this goroutine along with everything else. It is not explicitly joined.
func (c *Controller) readStdin(r io.Reader) {
	var buf []byte
	chunk := make([]byte, 64*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			consumed := protocol.ParseIncoming(buf, c.onRunScriptCommand, c.onStdinParseError)
			buf = buf[consumed:]
		}
		if err != nil {
			return
		}
		if c.hasExited() {
			return
		}
	}
}

func (c *Controller) hasExited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exited
}

func (c *Controller) onRunScriptCommand(cmd protocol.RunScriptCommand) {
	c.EnqueueScript(cmd.File, cmd.Script)
}

func (c *Controller) onStdinParseError(msg string) {
	logging.Debug("controller: malformed stdin command", "err", msg)
}

func (c *Controller) launch() error {
	ln, err := wire.Listen()
	if err != nil {
		return fmt.Errorf("controller: listen: %w", err)
	}

	ch := wire.NewChannel(wire.RoleController, c.handlePacket, c.handleChannelError)
	c.mu.Lock()
	c.channel = ch
	c.connected = false
	c.mu.Unlock()

	go func() {
		_ = ln.AcceptOnce(ch)
		defer ln.Close()
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		c.onAgentReadyToRunScript()
	}()

	env := []string{wire.PortEnvVar + "=" + string(wire.EncodePort(ln.Port()))}
	proc, err := c.cfg.Launcher.Launch(env)
	if err != nil {
		ln.Close()
		return fmt.Errorf("controller: launch: %w", err)
	}
	c.mu.Lock()
	c.proc = proc
	c.mu.Unlock()

	go func() {
		code, _ := proc.Wait()
		c.userAppFinished(code)
	}()
	return nil
}

func (c *Controller) handlePacket(p wire.Packet) {
	switch wire.ToController(p.Type) {
	case wire.NewUserAppEvent:
		c.writeLine(protocol.EncodeEvent(p.Payload))
		c.observe("event", p.Payload)
	case wire.ScriptError:
		c.onScriptError(p.Payload)
	case wire.ScriptEnd:
		c.onScriptEnd()
	case wire.ScriptLog:
		c.writeLine(protocol.EncodeScriptLog(p.Payload))
		c.observe("log", p.Payload)
	case wire.Close:
		// handled internally by wire.Channel's read loop.
	default:
		logging.Debug("controller: ignoring unknown packet type", "type", p.Type)
	}
}

// observe fans a line out to Config.Observe without ever blocking the
// dispatch loop on it.
func (c *Controller) observe(kind, payload string) {
	if c.cfg.Observe == nil {
		return
	}
	go c.cfg.Observe(kind, payload)
}

func (c *Controller) handleChannelError(err error) {
	logging.Error("controller: agent channel error", "err", err)
}

// onAgentReadyToRunScript pops and dispatches the next runnable fragment,
// gated on a live connection, an idle script slot, and (for a
// RunAfterAppStart fragment) an application restart since the previous
// RunAfterAppStart fragment was dispatched.
func (c *Controller) onAgentReadyToRunScript() {
	c.mu.Lock()
	if !c.connected || c.scriptRunning || c.queue.Empty() {
		c.mu.Unlock()
		return
	}
	front, _ := c.queue.Front()
	if front.RunAfterAppStart && !c.restartDone {
		c.mu.Unlock()
		return
	}
	frag, _ := c.queue.Pop()
	if frag.RunAfterAppStart {
		// This fragment used up the restart; the next one waits for another.
		c.restartDone = false
	}
	ch := c.channel
	c.scriptRunning = true
	c.mu.Unlock()

	_ = ch.Send(uint32(wire.SetScriptFileName), frag.FileName)
	_ = ch.Send(uint32(wire.RunScript), frag.Code)

	if c.cfg.OnDispatch != nil {
		go c.cfg.OnDispatch(frag.FileName, frag.StartLine, frag.RunAfterAppStart)
	}
}

func (c *Controller) onScriptError(msg string) {
	c.writeLine(protocol.EncodeAppErrors(msg))
	c.observe("error", msg)
	c.setScriptRunningState(false)
	if c.cfg.ExitOnScriptError {
		time.Sleep(c.cfg.DrainDelay)
		c.finish(1)
	}
}

func (c *Controller) onScriptEnd() {
	c.writeLine(protocol.EncodeScriptEnd())
	c.observe("scriptend", "")
	c.setScriptRunningState(false)
}

// setScriptRunningState clears the running flag and, if nothing else holds
// the slot, immediately tries to dispatch the next queued fragment —
// mirroring the original's self-triggering state transition.
func (c *Controller) setScriptRunningState(running bool) {
	c.mu.Lock()
	c.scriptRunning = running
	c.mu.Unlock()
	if !running {
		c.onAgentReadyToRunScript()
	}
}

// userAppFinished runs when the target process exits on its own. After a
// short drain, it either relaunches (if scripts remain queued) or ends the
// controller's run with the application's own exit code.
func (c *Controller) userAppFinished(exitCode int) {
	time.Sleep(c.cfg.DrainDelay)
	c.setScriptRunningState(false)

	c.mu.Lock()
	empty := c.queue.Empty()
	c.mu.Unlock()
	if empty {
		c.finish(exitCode)
		return
	}

	c.mu.Lock()
	c.restartDone = true
	c.connected = false
	c.mu.Unlock()

	if err := c.launch(); err != nil {
		logging.Error("controller: relaunch failed", "err", err)
		c.finish(1)
	}
}

func (c *Controller) finish(code int) {
	c.mu.Lock()
	if c.exited {
		c.mu.Unlock()
		return
	}
	c.exited = true
	c.exitCode = code
	c.mu.Unlock()
	close(c.done)
}

func (c *Controller) writeLine(line string) {
	if c.cfg.Stdout == nil {
		return
	}
	_, _ = io.WriteString(c.cfg.Stdout, line+"\n")
}
