package recorder

import (
	"fmt"
	"strings"

	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
)

// AsyncEmit lets a recognizer (or something it subscribes, such as a later
// tree-item expansion) emit a script line outside the triggering event.
type AsyncEmit func(code string)

// Target bundles the widget under the pointer with its precomputed
// identifier path, the unit recognizers operate on.
type Target struct {
	Widget toolkit.Widget
	IDPath string
}

// Recognizer maps a toolkit event and its target widget to a recorded
// script line, or "" if it doesn't apply. Order in the chain matters: the
// first non-empty result wins.
type Recognizer func(ev toolkit.Event, target Target, emit AsyncEmit) string

func isMousePressOrDblClick(ev toolkit.Event) (*toolkit.MouseEvent, bool) {
	if ev.Mouse == nil {
		return nil, false
	}
	if ev.Mouse.Kind != toolkit.MouseButtonPress && ev.Mouse.Kind != toolkit.MouseButtonDblClick {
		return nil, false
	}
	return ev.Mouse, true
}

func escapeForScript(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return strings.ReplaceAll(s, "\n", "\\n")
}

// menuClickRecognizer maps clicks on a popup-menu widget to an activateItem
// call (or, for an unnamed menu, an activateMenuItem call) carrying the
// menu widget's own Text(); the click position is not used.
func menuClickRecognizer(ev toolkit.Event, target Target, _ AsyncEmit) string {
	mouse, ok := isMousePressOrDblClick(ev)
	if !ok || target.Widget == nil || target.Widget.Kind() != toolkit.Menu {
		return ""
	}
	local := target.Widget.MapFromGlobal(mouse.GlobalPoint)
	actionText := target.Widget.Text()
	_ = local
	if actionText == "" {
		return ""
	}
	if target.Widget.ObjectName() != "" {
		return fmt.Sprintf("Test.activateItem('%s', '%s');", target.IDPath, escapeForScript(actionText))
	}
	return fmt.Sprintf("Test.activateMenuItem('%s');", escapeForScript(actionText))
}

// treeWidgetClickRecognizer emits activateItem/doubleClickItem and
// subscribes the watcher to the widget's item-expanded signal so that a
// later expansion produces expandItemInTree.
func treeWidgetClickRecognizer(watcher *ExpansionWatcher) Recognizer {
	return func(ev toolkit.Event, target Target, emit AsyncEmit) string {
		mouse, ok := isMousePressOrDblClick(ev)
		if !ok || target.Widget == nil || target.Widget.Kind() != toolkit.TreeWidget {
			return ""
		}
		locator, ok := target.Widget.(toolkit.TreeItemLocator)
		if !ok {
			return ""
		}
		local := target.Widget.MapFromGlobal(mouse.GlobalPoint)
		item := locator.ItemAt(local)
		if item == nil || item.Text() == "" {
			return ""
		}
		text := escapeForScript(item.Text())
		var code string
		if ev.Mouse.Kind == toolkit.MouseButtonDblClick {
			code = fmt.Sprintf("Test.doubleClickItem('%s', '%s');", target.IDPath, text)
		} else {
			code = fmt.Sprintf("Test.activateItem('%s', '%s');", target.IDPath, text)
		}
		if expandable, ok := target.Widget.(toolkit.Expandable); ok {
			watcher.Watch(expandable, target.IDPath, emit)
		}
		return code
	}
}

// comboAndListWidgetClickRecognizer maps activation of a combo-box dropdown
// entry or a list-widget item to activateItem(id, text).
func comboAndListWidgetClickRecognizer(ev toolkit.Event, target Target, _ AsyncEmit) string {
	mouse, ok := isMousePressOrDblClick(ev)
	if !ok || target.Widget == nil {
		return ""
	}
	local := target.Widget.MapFromGlobal(mouse.GlobalPoint)

	switch target.Widget.Kind() {
	case toolkit.ComboBox:
		lister, ok := target.Widget.(toolkit.ItemTextLister)
		locator, locOk := target.Widget.(toolkit.ViewIndexLocator)
		if !ok || !locOk {
			return ""
		}
		idx, found := locator.IndexAt(local)
		if !found {
			return ""
		}
		return fmt.Sprintf("Test.activateItem('%s', '%s');", target.IDPath, escapeForScript(lister.ItemText(idx.Row)))
	case toolkit.ListWidget:
		locator, ok := target.Widget.(toolkit.ListItemLocator)
		if !ok {
			return ""
		}
		item := locator.ItemAt(local)
		if item == nil || item.Text() == "" {
			return ""
		}
		return fmt.Sprintf("Test.activateItem('%s', '%s');", target.IDPath, escapeForScript(item.Text()))
	}
	return ""
}

// tabBarClickRecognizer maps a tab-bar press to activateItem(id, tabText).
func tabBarClickRecognizer(ev toolkit.Event, target Target, _ AsyncEmit) string {
	mouse, ok := isMousePressOrDblClick(ev)
	if !ok || target.Widget == nil || target.Widget.Kind() != toolkit.TabBar {
		return ""
	}
	locator, ok := target.Widget.(toolkit.TabLocator)
	if !ok {
		return ""
	}
	local := target.Widget.MapFromGlobal(mouse.GlobalPoint)
	text, found := locator.TabAt(local)
	if !found {
		return ""
	}
	return fmt.Sprintf("Test.activateItem('%s', '%s');", target.IDPath, escapeForScript(text))
}

// flattenViewIndex builds the [col0,row0,col1,row1,...] path, parent-first,
// spec.md §4.3's encoding for model/view indices.
func flattenViewIndex(idx toolkit.ViewIndex) []int {
	var chain []toolkit.ViewIndex
	for cur := &idx; cur != nil; cur = cur.Parent {
		chain = append(chain, *cur)
	}
	out := make([]int, 0, len(chain)*2)
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Column, chain[i].Row)
	}
	return out
}

func formatIntList(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// treeViewAndListViewClickRecognizer maps a model/view click to
// activateItemInView, subscribing tree-views to expansion so a later
// expansion is recorded as expandItemInTree with the item's text (not as
// expandItemInTreeView).
func treeViewAndListViewClickRecognizer(watcher *ExpansionWatcher) Recognizer {
	return func(ev toolkit.Event, target Target, emit AsyncEmit) string {
		mouse, ok := isMousePressOrDblClick(ev)
		if !ok || target.Widget == nil {
			return ""
		}
		if target.Widget.Kind() != toolkit.TreeView && target.Widget.Kind() != toolkit.ListView {
			return ""
		}
		locator, ok := target.Widget.(toolkit.ViewIndexLocator)
		if !ok {
			return ""
		}
		local := target.Widget.MapFromGlobal(mouse.GlobalPoint)
		idx, found := locator.IndexAt(local)
		if !found {
			return ""
		}
		code := fmt.Sprintf("Test.activateItemInView('%s', %s);", target.IDPath, formatIntList(flattenViewIndex(idx)))
		if target.Widget.Kind() == toolkit.TreeView {
			if expandable, ok := target.Widget.(toolkit.Expandable); ok {
				watcher.Watch(expandable, target.IDPath, emit)
			}
		}
		return code
	}
}

// mdiTitleBarRecognizer maps a press on an MDI sub-window title bar to
// chooseWindowWithTitle(workspaceId, title).
func mdiTitleBarRecognizer(ev toolkit.Event, target Target, _ AsyncEmit) string {
	_, ok := isMousePressOrDblClick(ev)
	if !ok || target.Widget == nil || target.Widget.Kind() != toolkit.MDITitleBar {
		return ""
	}
	parent := target.Widget.Parent()
	workspaceID := target.IDPath
	if parent != nil {
		workspaceID = FullWidgetID(parent)
	}
	return fmt.Sprintf("Test.chooseWindowWithTitle('%s', '%s');", workspaceID, escapeForScript(target.Widget.Text()))
}

// pushButtonRecognizer maps a press on an unnamed button with a non-empty
// caption to pressButtonWithText(parentId, escapedCaption).
func pushButtonRecognizer(ev toolkit.Event, target Target, _ AsyncEmit) string {
	_, ok := isMousePressOrDblClick(ev)
	if !ok || target.Widget == nil || target.Widget.Kind() != toolkit.PushButton {
		return ""
	}
	if target.Widget.ObjectName() != "" {
		return ""
	}
	text := target.Widget.Text()
	if text == "" {
		return ""
	}
	parentID := ""
	if parent := target.Widget.Parent(); parent != nil {
		parentID = FullWidgetID(parent)
	}
	return fmt.Sprintf("Test.pressButtonWithText('%s', '%s');", parentID, escapeForScript(text))
}

// DefaultChain returns the recognizer chain in spec order (a-g); the
// macOS-only dynamic-menu tracking step (h) has no equivalent in this
// toolkit abstraction and is intentionally omitted.
func DefaultChain(watcher *ExpansionWatcher) []Recognizer {
	return []Recognizer{
		menuClickRecognizer,
		treeWidgetClickRecognizer(watcher),
		comboAndListWidgetClickRecognizer,
		tabBarClickRecognizer,
		treeViewAndListViewClickRecognizer(watcher),
		mdiTitleBarRecognizer,
		pushButtonRecognizer,
	}
}

// MouseEventToScript is the generic fallback (chain step i): a plain
// mouseClick/mouseDClick with coordinates in the target widget's local
// frame.
func MouseEventToScript(idPath string, mouse *toolkit.MouseEvent, local toolkit.Point) string {
	op := "mouseClick"
	if mouse.Kind == toolkit.MouseButtonDblClick {
		op = "mouseDClick"
	}
	return fmt.Sprintf("Test.%s('%s', '%s', %d, %d);", op, idPath, mouse.Button.String(), local.X, local.Y)
}
