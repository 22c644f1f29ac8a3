package controller

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/scriptmodel"
	"github.com/ehrlich-b/deskmonkey/internal/wire"
)

// fakeAppProcess is an AppProcess whose exit is controlled by the test via
// a channel, standing in for a real target application.
type fakeAppProcess struct {
	exitCode chan int
}

func newFakeAppProcess() *fakeAppProcess { return &fakeAppProcess{exitCode: make(chan int, 1)} }

func (p *fakeAppProcess) Wait() (int, error) { return <-p.exitCode, nil }
func (p *fakeAppProcess) Kill() error        { return nil }
func (p *fakeAppProcess) finish(code int)    { p.exitCode <- code }

// fakeLauncher hands back pre-built fakeAppProcess instances and records the
// env (in particular wire.PortEnvVar) each launch received, so a test agent
// can dial the controller's listener.
type fakeLauncher struct {
	mu      sync.Mutex
	procs   []*fakeAppProcess
	lastEnv []string
	launchN int
}

func (l *fakeLauncher) Launch(env []string) (AppProcess, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastEnv = env
	l.launchN++
	p := newFakeAppProcess()
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) portEnv() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.lastEnv {
		if strings.HasPrefix(e, wire.PortEnvVar+"=") {
			return []byte(strings.TrimPrefix(e, wire.PortEnvVar+"="))
		}
	}
	return nil
}

func (l *fakeLauncher) currentProc() *fakeAppProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

// fakeAgent stands in for the agent binary: it dials the controller and
// records/replies to packets under test control.
type fakeAgent struct {
	mu   sync.Mutex
	pkts []wire.Packet
	ch   *wire.Channel
}

func dialFakeAgent(t *testing.T, portEnv []byte) *fakeAgent {
	t.Helper()
	a := &fakeAgent{}
	ch := wire.NewChannel(wire.RoleAgent, a.handle, func(error) {})
	deadline := time.Now().Add(2 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if err = wire.Dial(portEnv, ch); err == nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial fake agent: %v", err)
	}
	a.ch = ch
	return a
}

func (a *fakeAgent) handle(p wire.Packet) {
	a.mu.Lock()
	a.pkts = append(a.pkts, p)
	a.mu.Unlock()
}

func (a *fakeAgent) waitForRunScript(t *testing.T) wire.Packet {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		a.mu.Lock()
		for _, p := range a.pkts {
			if wire.ToAgent(p.Type) == wire.RunScript {
				a.mu.Unlock()
				return p
			}
		}
		a.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for RunScript")
	return wire.Packet{}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestControllerDispatchesQueuedScriptOnceConnected(t *testing.T) {
	launcher := &fakeLauncher{}
	var out bytes.Buffer
	c := New(Config{Launcher: launcher, Stdout: &out, DrainDelay: time.Millisecond})

	if err := c.launch(); err != nil {
		t.Fatalf("launch: %v", err)
	}
	c.EnqueueScript("smoke.js", "Test.log('hi');")

	agent := dialFakeAgent(t, launcher.portEnv())
	run := agent.waitForRunScript(t)
	if run.Payload != "Test.log('hi');" {
		t.Fatalf("got payload %q", run.Payload)
	}

	// Simulate the agent finishing the script.
	_ = agent.ch.Send(uint32(wire.ScriptLog), "hi")
	_ = agent.ch.Send(uint32(wire.ScriptEnd), "")

	waitUntil(t, func() bool { return strings.Contains(out.String(), `"script logs":"hi"`) })
	waitUntil(t, func() bool { return strings.Contains(out.String(), `"script end"`) })
}

func TestControllerRelaunchesAfterAppExitWithQueuedRestartFragment(t *testing.T) {
	launcher := &fakeLauncher{}
	var out bytes.Buffer
	c := New(Config{Launcher: launcher, Stdout: &out, DrainDelay: time.Millisecond})

	if err := c.launch(); err != nil {
		t.Fatalf("launch: %v", err)
	}
	c.EnqueueScript("smoke.js", "Test.log('a');\n"+scriptmodel.RestartMarker+"\nTest.log('b');")

	agent1 := dialFakeAgent(t, launcher.portEnv())
	run1 := agent1.waitForRunScript(t)
	if run1.Payload != "Test.log('a');\n" {
		t.Fatalf("got first fragment payload %q", run1.Payload)
	}
	_ = agent1.ch.Send(uint32(wire.ScriptEnd), "")

	waitUntil(t, func() bool { return c.PendingCount() == 1 })

	launcher.currentProc().finish(0)
	waitUntil(t, func() bool { return launcher.launchN == 2 })

	agent2 := dialFakeAgent(t, launcher.portEnv())
	run2 := agent2.waitForRunScript(t)
	if run2.Payload != "\nTest.log('b');" {
		t.Fatalf("got second fragment payload %q", run2.Payload)
	}
}

func TestControllerExitsWithAppCodeWhenQueueDrains(t *testing.T) {
	launcher := &fakeLauncher{}
	var out bytes.Buffer
	c := New(Config{Launcher: launcher, Stdout: &out, DrainDelay: time.Millisecond})

	if err := c.launch(); err != nil {
		t.Fatalf("launch: %v", err)
	}
	launcher.currentProc().finish(7)

	waitUntil(t, func() bool { return c.hasExited() })
	if got := c.ExitCode(); got != 7 {
		t.Fatalf("got exit code %d, want 7", got)
	}
}

func TestControllerExitsOnScriptErrorWhenConfigured(t *testing.T) {
	launcher := &fakeLauncher{}
	var out bytes.Buffer
	c := New(Config{Launcher: launcher, Stdout: &out, DrainDelay: time.Millisecond, ExitOnScriptError: true})

	if err := c.launch(); err != nil {
		t.Fatalf("launch: %v", err)
	}
	c.EnqueueScript("broken.js", "Test.thisOpDoesNotExist();")

	agent := dialFakeAgent(t, launcher.portEnv())
	agent.waitForRunScript(t)
	_ = agent.ch.Send(uint32(wire.ScriptError), "unknown operation Test.thisOpDoesNotExist")

	waitUntil(t, func() bool { return c.hasExited() })
	if got := c.ExitCode(); got != 1 {
		t.Fatalf("got exit code %d, want 1", got)
	}
	if !strings.Contains(out.String(), "app errors") {
		t.Fatalf("expected app errors line, got %q", out.String())
	}
}

func TestEnqueueScriptWakesIdleDispatcher(t *testing.T) {
	launcher := &fakeLauncher{}
	var out bytes.Buffer
	c := New(Config{Launcher: launcher, Stdout: &out, DrainDelay: time.Millisecond})

	if err := c.launch(); err != nil {
		t.Fatalf("launch: %v", err)
	}
	agent := dialFakeAgent(t, launcher.portEnv())
	waitUntil(t, func() bool { return c.Connected() })

	c.EnqueueScript("late.js", "Test.log('late');")
	run := agent.waitForRunScript(t)
	if run.Payload != "Test.log('late');" {
		t.Fatalf("got %q", run.Payload)
	}
}
