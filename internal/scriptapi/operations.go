package scriptapi

import (
	"fmt"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
)

// moveMouseTo interpolates the cursor to "to" in demonstration mode,
// stepping one pixel along x at a time (y follows the line) and pausing
// DemoPxDelay after each step; a purely vertical move is a single jump.
// No other GUI events are processed between steps. Outside demonstration
// mode it jumps straight there.
func (s *Surface) moveMouseTo(to toolkit.Point) {
	if s.demo.Load() {
		from := s.app.CursorPos()
		dx := to.X - from.X
		step := 1
		if dx < 0 {
			step = -1
		}
		dy := to.Y - from.Y
		var k float64
		if dx != 0 {
			k = float64(dy) / float64(dx)
		}
		for x := 0; x != dx+step; x += step {
			y := int(k*float64(x) + 0.5)
			s.app.MoveCursorTo(toolkit.Point{X: from.X + x, Y: from.Y + y})
			<-s.clock.After(s.cfg.DemoPxDelay)
		}
	}
	s.app.MoveCursorTo(to)
}

func (s *Surface) doMouseClick(widgetID, buttonName string, x, y int, dblClick bool) {
	w, err := s.getWidget(widgetID, true)
	if err != nil {
		s.fail("Can not find widget with such name %s", widgetID)
		return
	}
	btn, ok := toolkit.ParseMouseButton(buttonName)
	if !ok {
		s.fail("Unknown mouse button %s", buttonName)
		return
	}
	local := toolkit.Point{X: x, Y: y}
	s.runInGui(func() {
		s.moveMouseTo(w.MapToGlobal(local))
		s.synth.ClickMouse(w, btn, local, dblClick)
	})
}

// MouseClick simulates a click at (x,y) in widgetID's local coordinates.
func (s *Surface) MouseClick(widgetID, button string, x, y int) {
	s.takeStep("mouseClick")
	s.doMouseClick(widgetID, button, x, y, false)
}

// MouseDClick simulates a double-click.
func (s *Surface) MouseDClick(widgetID, button string, x, y int) {
	s.takeStep("mouseDClick")
	s.doMouseClick(widgetID, button, x, y, true)
}

// KeyClick resolves widgetID, parses keySeq, and issues a single
// synthetic key-click carrying the accumulated modifier bits.
func (s *Surface) KeyClick(widgetID, keySeq string) {
	s.takeStep("keyClick")
	w, err := s.getWidget(widgetID, true)
	if err != nil {
		s.fail("Can not find widget with such name %s", widgetID)
		return
	}
	key, modifiers, err := parseKeySequence(keySeq)
	if err != nil {
		s.fail("%v", err)
		return
	}
	s.runInGui(func() {
		s.synth.PressKey(w, key, modifiers)
	})
}

// ActivateItem resolves widgetID to a menu, tree widget, combo box, tab bar
// or list widget/view and activates the named item, dispatching by kind the
// way the original's activateItemInGuiThread does.
func (s *Surface) ActivateItem(widgetID, itemText string) {
	s.takeStep("activateItem")
	s.doActivateItem(widgetID, itemText, false)
}

// DoubleClickItem is ActivateItem's double-click counterpart.
func (s *Surface) DoubleClickItem(widgetID, itemText string) {
	s.takeStep("doubleClickItem")
	s.doActivateItem(widgetID, itemText, true)
}

func (s *Surface) doActivateItem(widgetID, itemText string, dblClick bool) {
	w, err := s.getWidget(widgetID, true)
	if err != nil {
		s.fail("Can not find widget with such name %s", widgetID)
		return
	}

	switch w.Kind() {
	case toolkit.Menu:
		s.runInGui(func() {
			if !s.synth.ActivateMenuItem(w, itemText) {
				s.fail("Item `%s' not found", itemText)
			}
		})
	case toolkit.TreeWidget:
		finder, ok := w.(toolkit.TreeItemFinder)
		if !ok {
			s.fail("widget %s does not support item lookup", widgetID)
			return
		}
		item, found := finder.FindTreeItem(itemText)
		if !found {
			s.fail("There are no such item %s", itemText)
			return
		}
		s.runInGui(func() { s.synth.ActivateTreeItem(w, item, dblClick) })
	case toolkit.ComboBox, toolkit.ListView:
		finder, ok := w.(toolkit.ViewTextFinder)
		if !ok {
			s.fail("widget %s does not support item lookup", widgetID)
			return
		}
		idx, found := finder.FindItemIndexByText(itemText)
		if !found {
			s.fail("There are no such item %s", itemText)
			return
		}
		s.runInGui(func() { s.synth.ActivateViewIndex(w, idx, dblClick) })
	case toolkit.TabBar:
		finder, ok := w.(toolkit.TabFinder)
		if !ok {
			s.fail("widget %s does not support item lookup", widgetID)
			return
		}
		idx, found := finder.FindTabIndex(itemText)
		if !found {
			s.fail("There are no such item %s in QTabBar", itemText)
			return
		}
		s.runInGui(func() { s.synth.ActivateTabItem(w, idx) })
	case toolkit.ListWidget:
		finder, ok := w.(toolkit.ListItemFinder)
		if !ok {
			s.fail("widget %s does not support item lookup", widgetID)
			return
		}
		item, found := finder.FindListItem(itemText)
		if !found {
			s.fail("There are no such item %s in QListWidget", itemText)
			return
		}
		s.runInGui(func() { s.synth.ActivateListItem(w, item, dblClick) })
	default:
		s.fail("Activate item problem: unknown type of widget")
	}
}

// ActivateItemInView activates a model/view index given as a flattened
// [col0,row0,col1,row1,...] path, parent-first.
func (s *Surface) ActivateItemInView(widgetID string, pos []int) {
	s.takeStep("activateItemInView")
	idx, err := unflattenViewIndex(pos)
	if err != nil {
		s.fail("%v", err)
		return
	}
	w, err := s.getWidget(widgetID, true)
	if err != nil {
		s.fail("Can not find widget with such name %s", widgetID)
		return
	}
	if w.Kind() != toolkit.TreeView && w.Kind() != toolkit.ListView {
		s.fail("%s is not a model/view widget", widgetID)
		return
	}
	s.runInGui(func() { s.synth.ActivateViewIndex(w, idx, false) })
}

// unflattenViewIndex is flattenViewIndex's inverse: pairs are parent-first,
// so the last pair in the list is the innermost (leaf) index.
func unflattenViewIndex(pos []int) (toolkit.ViewIndex, error) {
	if len(pos) == 0 || len(pos)%2 != 0 {
		return toolkit.ViewIndex{}, fmt.Errorf("malformed view index path %v", pos)
	}
	var cur *toolkit.ViewIndex
	for i := 0; i < len(pos); i += 2 {
		idx := toolkit.ViewIndex{Column: pos[i], Row: pos[i+1], Parent: cur}
		cur = &idx
	}
	return *cur, nil
}

// ExpandItemInTree expands the tree-widget item matching itemName.
func (s *Surface) ExpandItemInTree(widgetID, itemName string) {
	s.takeStep("expandItemInTree")
	w, err := s.getWidget(widgetID, true)
	if err != nil {
		s.fail("Can not find such widget %s", widgetID)
		return
	}
	finder, ok := w.(toolkit.TreeItemFinder)
	if !ok {
		s.fail("%s is not a tree widget", widgetID)
		return
	}
	item, found := finder.FindTreeItem(itemName)
	if !found {
		s.fail("Item `%s' not found", itemName)
		return
	}
	s.runInGui(func() {
		if !s.synth.ExpandTreeItem(w, item) {
			s.fail("Item `%s' not found", itemName)
		}
	})
}

// ExpandItemInTreeView expands a model/view tree-view index given as a
// flattened [col0,row0,...] path.
func (s *Surface) ExpandItemInTreeView(widgetID string, pos []int) {
	s.takeStep("expandItemInTreeView")
	idx, err := unflattenViewIndex(pos)
	if err != nil {
		s.fail("%v", err)
		return
	}
	w, err := s.getWidget(widgetID, true)
	if err != nil {
		s.fail("Can not find such widget %s", widgetID)
		return
	}
	if w.Kind() != toolkit.TreeView {
		s.fail("%s is not a tree view", widgetID)
		return
	}
	s.runInGui(func() { s.synth.ExpandViewIndex(w, idx) })
}

// Wait pauses the worker thread for ms milliseconds.
func (s *Surface) Wait(ms int) {
	s.takeStep("wait")
	<-s.clock.After(time.Duration(ms) * time.Millisecond)
}

// ChooseWindowWithTitle activates the MDI sub-window with the given title
// inside the workspace widgetID resolves to.
func (s *Surface) ChooseWindowWithTitle(widgetID, title string) {
	s.takeStep("chooseWindowWithTitle")
	w, err := s.getWidget(widgetID, true)
	if err != nil {
		s.fail("There is no such widget %s", widgetID)
		return
	}
	var target toolkit.Widget
	for _, child := range w.Children() {
		if child.Text() == title {
			target = child
			break
		}
	}
	if target == nil {
		s.fail("No window with such title %s", title)
		return
	}
	s.runInGui(func() {
		if !s.synth.ActivateSubWindow(w, target) {
			s.fail("No window with such title %s", title)
		}
	})
}

// SetDemonstrationMode turns cursor interpolation and the per-step pause on
// or off.
func (s *Surface) SetDemonstrationMode(on bool) {
	s.takeStep("setDemonstrationMode")
	s.demo.Store(on)
}

// PressButtonWithText finds an unnamed button under parentWidgetID by its
// caption and clicks it.
func (s *Surface) PressButtonWithText(parentWidgetID, text string) {
	s.takeStep("pressButtonWithText")
	w, err := s.getWidget(parentWidgetID, true)
	if err != nil {
		s.fail("There is no such widget %s", parentWidgetID)
		return
	}
	s.runInGui(func() {
		if !s.synth.PressButtonWithText(w, text) {
			s.fail("no button with text %s under %s", text, parentWidgetID)
		}
	})
}

// Assert raises a script-visible error if cond is false.
func (s *Surface) Assert(cond bool) {
	s.takeStep("assert")
	if !cond {
		s.fail("assertion failed")
	}
}

// AssertEqual raises a script-visible error if a != b.
func (s *Surface) AssertEqual(a, b string) {
	s.takeStep("assertEqual")
	if a != b {
		s.fail("assertion failed: %q != %q", a, b)
	}
}

// Log emits a line to the agent's script log, independent of tracing.
func (s *Surface) Log(msg string) {
	if s.emitLog != nil {
		s.emitLog(msg)
	}
}
