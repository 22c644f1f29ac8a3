package scriptapi

import (
	"testing"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/guiexec"
	"github.com/ehrlich-b/deskmonkey/internal/interp"
	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
	"github.com/ehrlich-b/deskmonkey/internal/toolkit/fake"
)

type fakeStepper struct {
	checkpoints []string
	errors      []string
}

func (f *fakeStepper) Checkpoint(label string) { f.checkpoints = append(f.checkpoints, label) }
func (f *fakeStepper) ThrowError(message string) { f.errors = append(f.errors, message) }

type fakeProbe struct{}

func (fakeProbe) CurrentModalIdentity() any { return nil }

// newTestSurface wires a Surface against a running GUI loop so runInGui
// calls actually execute, with an immediate clock so getWidget's poll loop
// never really sleeps.
func newTestSurface(t *testing.T, app toolkit.Application, synth toolkit.InputSynth) (*Surface, *fakeStepper) {
	t.Helper()
	loop := guiexec.NewLoop()
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	go loop.Run(stop)

	inv := guiexec.NewInvoker(loop, fakeProbe{})
	step := &fakeStepper{}
	s := New(app, synth, inv, step, nil)
	s.SetClock(Clock{
		Now:   time.Now,
		After: func(d time.Duration) <-chan time.Time { return time.After(time.Microsecond) },
	})
	return s, step
}

func buildWidgetTree() (*fake.Widget, *fake.Widget, *fake.Widget) {
	root := &fake.Widget{Name: "mainWindow", Class: "QMainWindow", Visible: true, Enabled: true, TopLevel: true, Center: toolkit.Point{X: 100, Y: 100}}
	ok := &fake.Widget{Name: "okButton", Class: "QPushButton", ParentW: root, Visible: true, Enabled: true, Center: toolkit.Point{X: 110, Y: 110}}
	cancel := &fake.Widget{Name: "cancelButton", Class: "QPushButton", ParentW: root, Visible: true, Enabled: true, Center: toolkit.Point{X: 130, Y: 110}}
	root.Kids = []toolkit.Widget{ok, cancel}
	return root, ok, cancel
}

func TestGetWidgetResolvesByName(t *testing.T) {
	root, ok, _ := buildWidgetTree()
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok, root.Kids[1]}
	app.AtPoint[ok.GlobalCenter()] = ok

	s, _ := newTestSurface(t, app, &fake.InputSynth{})
	w, err := s.getWidget("mainWindow.okButton", true)
	if err != nil {
		t.Fatalf("getWidget: %v", err)
	}
	if w.ObjectName() != "okButton" {
		t.Fatalf("got %s, want okButton", w.ObjectName())
	}
}

func TestGetWidgetResolvesByClassAndOrder(t *testing.T) {
	root, ok, cancel := buildWidgetTree()
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok, cancel}
	app.AtPoint[cancel.GlobalCenter()] = cancel

	s, _ := newTestSurface(t, app, &fake.InputSynth{})
	w, err := s.getWidget("mainWindow.<class_name=QPushButton,1>", true)
	if err != nil {
		t.Fatalf("getWidget: %v", err)
	}
	if w.ObjectName() != "cancelButton" {
		t.Fatalf("got %s, want cancelButton", w.ObjectName())
	}
}

func TestGetWidgetFallsBackToBruteForceForDeepDescendant(t *testing.T) {
	root, ok, _ := buildWidgetTree()
	grandchild := &fake.Widget{Name: "icon", Class: "QLabel", ParentW: ok, Visible: true, Enabled: true, Center: ok.Center}
	ok.Kids = []toolkit.Widget{grandchild}

	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok, root.Kids[0], grandchild}
	app.AtPoint[grandchild.GlobalCenter()] = grandchild

	s, _ := newTestSurface(t, app, &fake.InputSynth{})
	// mainWindow.icon skips the okButton segment; findChildSegment fails on
	// mainWindow's direct children so getWidget must fall back to a global
	// brute-force scan.
	w, err := s.getWidget("mainWindow.icon", true)
	if err != nil {
		t.Fatalf("getWidget: %v", err)
	}
	if w.ObjectName() != "icon" {
		t.Fatalf("got %s, want icon", w.ObjectName())
	}
}

func TestGetWidgetFailsWhenNotOnScreen(t *testing.T) {
	root, ok, _ := buildWidgetTree()
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok}
	// No AtPoint entry for ok's center: WidgetAt returns nil, so onScreen fails.

	s, _ := newTestSurface(t, app, &fake.InputSynth{})
	s.cfg.WaitWidgetTimeout = time.Millisecond
	if _, err := s.getWidget("mainWindow.okButton", true); err == nil {
		t.Fatal("expected resolution failure when widget is obscured")
	}
}

func TestGetWidgetFailsWhenDisabledAndEnabledRequired(t *testing.T) {
	root, ok, _ := buildWidgetTree()
	ok.Enabled = false
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok}
	app.AtPoint[ok.GlobalCenter()] = ok

	s, _ := newTestSurface(t, app, &fake.InputSynth{})
	s.cfg.WaitWidgetTimeout = time.Millisecond
	if _, err := s.getWidget("mainWindow.okButton", true); err == nil {
		t.Fatal("expected resolution failure for disabled widget")
	}
	if _, err := s.getWidget("mainWindow.okButton", false); err != nil {
		t.Fatalf("expected success when enabled is not required: %v", err)
	}
}

func TestMouseClickResolvesAndSynthesizes(t *testing.T) {
	root, ok, _ := buildWidgetTree()
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok}
	app.AtPoint[ok.GlobalCenter()] = ok

	synth := &fake.InputSynth{}
	s, step := newTestSurface(t, app, synth)
	s.MouseClick("mainWindow.okButton", "Qt.LeftButton", 3, 4)

	if len(step.errors) != 0 {
		t.Fatalf("unexpected errors: %v", step.errors)
	}
	if len(synth.Calls) != 1 || synth.Calls[0].Op != "click" {
		t.Fatalf("expected one click call, got %+v", synth.Calls)
	}
	if synth.Calls[0].Point != (toolkit.Point{X: 3, Y: 4}) {
		t.Fatalf("got point %+v, want (3,4)", synth.Calls[0].Point)
	}
}

func TestMouseClickFailsForUnknownWidget(t *testing.T) {
	root, _, _ := buildWidgetTree()
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root}

	synth := &fake.InputSynth{}
	s, step := newTestSurface(t, app, synth)
	s.cfg.WaitWidgetTimeout = time.Millisecond
	s.MouseClick("mainWindow.missing", "Qt.LeftButton", 0, 0)

	if len(step.errors) == 0 {
		t.Fatal("expected a script error for an unresolvable widget")
	}
	if len(synth.Calls) != 0 {
		t.Fatalf("expected no synth calls, got %+v", synth.Calls)
	}
}

func TestActivateItemDispatchesByWidgetKind(t *testing.T) {
	root := &fake.Widget{Name: "mainWindow", Visible: true, Enabled: true, TopLevel: true}
	treeW := &fake.Widget{Name: "tree", ParentW: root, Visible: true, Enabled: true}
	tree := fake.NewTreeWidget(treeW)
	tree.Items[toolkit.Point{X: 1, Y: 1}] = &fake.TreeItem{TextV: "Node A"}
	root.Kids = []toolkit.Widget{tree}

	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, tree}
	app.AtPoint[tree.GlobalCenter()] = tree

	synth := &fake.InputSynth{}
	s, step := newTestSurface(t, app, synth)
	s.ActivateItem("mainWindow.tree", "Node A")

	if len(step.errors) != 0 {
		t.Fatalf("unexpected errors: %v", step.errors)
	}
	if len(synth.Calls) != 1 || synth.Calls[0].Op != "activateTree" {
		t.Fatalf("expected one activateTree call, got %+v", synth.Calls)
	}
}

func TestActivateItemFailsWhenItemTextMissing(t *testing.T) {
	root := &fake.Widget{Name: "mainWindow", Visible: true, Enabled: true, TopLevel: true}
	treeW := &fake.Widget{Name: "tree", ParentW: root, Visible: true, Enabled: true}
	tree := fake.NewTreeWidget(treeW)
	root.Kids = []toolkit.Widget{tree}

	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, tree}
	app.AtPoint[tree.GlobalCenter()] = tree

	synth := &fake.InputSynth{}
	s, step := newTestSurface(t, app, synth)
	s.ActivateItem("mainWindow.tree", "Node A")

	if len(step.errors) == 0 {
		t.Fatal("expected an error for a missing item")
	}
	if len(synth.Calls) != 0 {
		t.Fatalf("expected no synth calls, got %+v", synth.Calls)
	}
}

func TestWaitBlocksUntilClockFires(t *testing.T) {
	root, _, _ := buildWidgetTree()
	app := fake.NewApplication(root)
	s, _ := newTestSurface(t, app, &fake.InputSynth{})

	fired := make(chan time.Time, 1)
	fired <- time.Now()
	s.SetClock(Clock{Now: time.Now, After: func(time.Duration) <-chan time.Time { return fired }})
	s.Wait(5)
}

func TestDispatchRoutesKnownOps(t *testing.T) {
	root, ok, _ := buildWidgetTree()
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok}
	app.AtPoint[ok.GlobalCenter()] = ok

	synth := &fake.InputSynth{}
	s, step := newTestSurface(t, app, synth)

	var logged []string
	s.emitLog = func(msg string) { logged = append(logged, msg) }

	err := s.Dispatch(callOf("log", "'hello world'"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(logged) != 1 || logged[0] != "hello world" {
		t.Fatalf("got %v, want [hello world]", logged)
	}

	err = s.Dispatch(callOf("mouseClick", "'mainWindow.okButton'", "'Qt.LeftButton'", "5", "6"))
	if err != nil {
		t.Fatalf("Dispatch mouseClick: %v", err)
	}
	if len(step.errors) != 0 {
		t.Fatalf("unexpected errors: %v", step.errors)
	}
}

func TestDispatchGetObjectByIdSucceedsAndFails(t *testing.T) {
	root, ok, _ := buildWidgetTree()
	app := fake.NewApplication(root)
	app.All = []toolkit.Widget{root, ok}
	app.AtPoint[ok.GlobalCenter()] = ok

	s, _ := newTestSurface(t, app, &fake.InputSynth{})

	if err := s.Dispatch(callOf("getObjectById", "'mainWindow.okButton'")); err != nil {
		t.Fatalf("Dispatch getObjectById: %v", err)
	}
	if err := s.Dispatch(callOf("getObjectById", "'mainWindow.missing'")); err == nil {
		t.Fatal("expected an error for a nonexistent widget")
	}
}

func TestDispatchRejectsUnknownOp(t *testing.T) {
	s, _ := newTestSurface(t, fake.NewApplication(&fake.Widget{Name: "root", Visible: true, Enabled: true, TopLevel: true}), &fake.InputSynth{})
	if err := s.Dispatch(callOf("doesNotExist")); err == nil {
		t.Fatal("expected an error for an unknown operation")
	}
}

func TestDispatchRejectsWrongArgCount(t *testing.T) {
	s, _ := newTestSurface(t, fake.NewApplication(&fake.Widget{Name: "root", Visible: true, Enabled: true, TopLevel: true}), &fake.InputSynth{})
	if err := s.Dispatch(callOf("wait")); err == nil {
		t.Fatal("expected an error for a missing argument")
	}
}

// callOf builds an interp.Call the way parseStatement would, for tests that
// only care about Dispatch.
func callOf(op string, args ...string) interp.Call {
	return interp.Call{Op: op, Args: args}
}
