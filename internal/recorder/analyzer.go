package recorder

import (
	"fmt"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
)

// dedupWindow is the de-duplication window for both key and mouse events
// (spec §4.3).
const dedupWindow = 100 * time.Millisecond

type lastKeyRecord struct {
	kind EventKindOrZero
	key  int
	at   time.Time
	set  bool
}

// EventKindOrZero avoids importing toolkit twice for a tiny alias; kept as
// its own type only for readability in lastKeyRecord.
type EventKindOrZero = toolkit.EventKind

type lastMouseRecord struct {
	kind     toolkit.EventKind
	at       time.Time
	point    toolkit.Point
	button   toolkit.MouseButton
	widgetID string
	set      bool
}

// Analyzer is the toolkit-wide event filter (C5): it classifies every
// incoming event, de-duplicates, runs the recognizer chain, and emits one
// recorded script line per user-visible gesture.
type Analyzer struct {
	app     toolkit.Application
	chain   []Recognizer
	watcher *ExpansionWatcher

	showObjectShortcutKey       int
	showObjectShortcutModifiers int

	emitScript func(code string)
	emitLog    func(text string)

	lastKey    lastKeyRecord
	lastMouse  lastMouseRecord
	keyPresses int
	keyRelease int
}

// NewAnalyzer wires an analyzer to its toolkit application handle and the
// two sinks it drives: recorded script lines and log-channel text (the
// show-object-under-cursor dump).
func NewAnalyzer(app toolkit.Application, emitScript func(string), emitLog func(string)) *Analyzer {
	watcher := NewExpansionWatcher()
	return &Analyzer{
		app:        app,
		chain:      DefaultChain(watcher),
		watcher:    watcher,
		emitScript: emitScript,
		emitLog:    emitLog,
	}
}

// SetShowObjectShortcut configures the key combination that dumps
// widget-under-cursor info to the log channel instead of recording.
func (a *Analyzer) SetShowObjectShortcut(key, modifiers int) {
	a.showObjectShortcutKey = key
	a.showObjectShortcutModifiers = modifiers
}

// HandleEvent is the event-filter entry point; it mirrors UserEventsAnalyzer
// ::eventFilter's switch over event kind.
func (a *Analyzer) HandleEvent(ev toolkit.Event) {
	switch ev.Kind {
	case toolkit.KeyPress, toolkit.KeyRelease:
		a.handleKeyEvent(ev)
	case toolkit.MouseButtonPress, toolkit.MouseButtonDblClick:
		a.handleMousePress(ev)
	case toolkit.MouseButtonRelease:
		a.handleMouseRelease()
	default:
		if code := a.callChain(ev, Target{}); code != "" {
			a.emitScript(code)
		}
	}
}

func (a *Analyzer) handleKeyEvent(ev toolkit.Event) {
	if ev.Key == nil {
		return
	}
	key := ev.Key
	if key.IsModifierOnly {
		return
	}
	if a.alreadySawKeyEvent(key) {
		return
	}

	if key.Kind == toolkit.KeyPress && key.Key == a.showObjectShortcutKey && key.Modifiers == a.showObjectShortcutModifiers && a.showObjectShortcutKey != 0 {
		a.emitLog(a.widgetUnderCursorInfo())
	}
}

func (a *Analyzer) alreadySawKeyEvent(key *toolkit.KeyEvent) bool {
	if a.lastKey.set && a.lastKey.kind == key.Kind && a.lastKey.key == key.Key &&
		absDuration(key.At.Sub(a.lastKey.at)) < dedupWindow {
		return true
	}
	a.lastKey = lastKeyRecord{kind: key.Kind, key: key.Key, at: key.At, set: true}

	switch key.Kind {
	case toolkit.KeyPress:
		a.keyPresses++
	case toolkit.KeyRelease:
		a.keyRelease++
		if a.keyPresses == a.keyRelease {
			a.keyPresses, a.keyRelease = 0, 0
			return true
		}
		a.keyPresses, a.keyRelease = 0, 0
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (a *Analyzer) handleMousePress(ev toolkit.Event) {
	mouse := ev.Mouse
	if mouse == nil {
		return
	}
	w := a.app.WidgetAt(mouse.GlobalPoint)
	if w == nil {
		return
	}

	idPath := FullWidgetID(w)
	if a.alreadySawMouseEvent(mouse, idPath) {
		return
	}

	local := w.MapFromGlobal(mouse.GlobalPoint)
	code := a.callChain(ev, Target{Widget: w, IDPath: idPath})
	if code == "" {
		code = MouseEventToScript(idPath, mouse, local)
	}

	if w.ObjectName() == "" && !isOnlyChildOfItsClass(w) {
		alt := nearestNamedAncestor(w.Parent())
		if alt != nil {
			altPath := FullWidgetID(alt)
			altLocal := alt.MapFromGlobal(mouse.GlobalPoint)
			altCode := a.callChain(ev, Target{Widget: alt, IDPath: altPath})
			if altCode == "" {
				altCode = MouseEventToScript(altPath, mouse, altLocal)
			}
			if altCode != code {
				code = fmt.Sprintf("%s\n//%s", code, altCode)
			}
		}
	}

	a.emitScript(code)
}

func (a *Analyzer) handleMouseRelease() {
	a.lastMouse = lastMouseRecord{}
	a.watcher.ReleaseAll()
}

func (a *Analyzer) alreadySawMouseEvent(mouse *toolkit.MouseEvent, widgetID string) bool {
	if a.lastMouse.set && a.lastMouse.kind == mouse.Kind && a.lastMouse.point == mouse.GlobalPoint &&
		a.lastMouse.button == mouse.Button && a.lastMouse.widgetID == widgetID &&
		absDuration(mouse.At.Sub(a.lastMouse.at)) < dedupWindow {
		return true
	}
	a.lastMouse = lastMouseRecord{kind: mouse.Kind, at: mouse.At, point: mouse.GlobalPoint, button: mouse.Button, widgetID: widgetID, set: true}
	return false
}

func (a *Analyzer) callChain(ev toolkit.Event, target Target) string {
	for _, recognize := range a.chain {
		if code := recognize(ev, target, a.emitScript); code != "" {
			return code
		}
	}
	return ""
}

func (a *Analyzer) widgetUnderCursorInfo() string {
	w := a.app.WidgetAt(a.app.CursorPos())
	info := "Widget at cursor info:\n"
	if modal := a.app.ActiveModalWidget(); modal != nil {
		info += fmt.Sprintf("Modal Widget %s\n", modal.ObjectName())
	} else {
		info += "Modal Windget null\n"
	}
	if popup := a.app.ActivePopupWidget(); popup != nil {
		info += fmt.Sprintf("Popup Widget %s\n", popup.ObjectName())
	} else {
		info += "Popup Window nullptr\n"
	}
	if active := a.app.ActiveWindow(); active != nil {
		info += fmt.Sprintf("Active Widget %s\n", active.ObjectName())
	} else {
		info += "Active Widget nullptr\n"
	}
	if w == nil {
		return info
	}
	info += fmt.Sprintf("class name %s, object name %s\n", w.ClassName(), w.ObjectName())
	for cur := w.Parent(); cur != nil; cur = cur.Parent() {
		info += fmt.Sprintf("parent class name %s, object name %s\n", cur.ClassName(), cur.ObjectName())
	}
	for _, child := range w.Children() {
		info += fmt.Sprintf("child class name %s, object name %s\n", child.ClassName(), child.ObjectName())
	}
	info += "Widget at cursor info END\n"
	return info
}
