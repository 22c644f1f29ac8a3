// Command monkeyagent is a demonstration target application: a small fake
// widget tree driven by internal/toolkit/fake, wired to internal/agent so
// monkeyctl has something real to launch and script against without
// depending on an actual GUI toolkit binding.
package main

import (
	"fmt"
	"os"

	"github.com/ehrlich-b/deskmonkey/internal/agent"
	"github.com/ehrlich-b/deskmonkey/internal/guiexec"
	"github.com/ehrlich-b/deskmonkey/internal/logging"
	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
	"github.com/ehrlich-b/deskmonkey/internal/toolkit/fake"
	"github.com/ehrlich-b/deskmonkey/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "monkeyagent:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := logging.Init("info", ""); err != nil {
		return err
	}

	portEnv := os.Getenv(wire.PortEnvVar)
	if portEnv == "" {
		return fmt.Errorf("%s not set; monkeyagent must be launched by monkeyctl", wire.PortEnvVar)
	}

	app := buildFakeWindow()
	synth := &fake.InputSynth{}
	loop := guiexec.NewLoop()
	invoker := guiexec.NewInvoker(loop, &modalProbe{app: app})

	a := agent.New(app, synth, invoker)

	ch := wire.NewChannel(wire.RoleAgent, a.HandlePacket, a.HandleError)
	a.Attach(ch)
	if err := wire.Dial([]byte(portEnv), ch); err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}

	stop := make(chan struct{})
	go loop.Run(stop)

	// Hold the process open; the controller drives the lifecycle by running
	// scripts and eventually closing the channel or killing this process.
	select {}
}

// modalProbe reports the fake Application's currently active modal widget as
// its identity, so guiexec.Invoker can detect a script opening a nested
// dialog loop.
type modalProbe struct {
	app *fake.Application
}

func (p *modalProbe) CurrentModalIdentity() any { return p.app.ActiveModalWidget() }

// buildFakeWindow assembles a minimal static widget tree: one top-level
// window containing one button, enough for scripts to click and log
// against.
func buildFakeWindow() *fake.Application {
	window := &fake.Widget{
		Name: "mainWindow", Class: "MainWindow", Caption: "Demo",
		Visible: true, Enabled: true, TopLevel: true,
	}
	button := &fake.Widget{
		Name: "okButton", Class: "PushButton", Caption: "OK",
		ParentW: window, Center: toolkit.Point{X: 10, Y: 10},
		Visible: true, Enabled: true,
	}
	window.Kids = []toolkit.Widget{button}

	app := fake.NewApplication(window)
	app.All = []toolkit.Widget{window, button}
	app.Active = window
	app.AtPoint[toolkit.Point{X: 10, Y: 10}] = button
	return app
}
