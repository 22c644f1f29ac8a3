package fake

import "github.com/ehrlich-b/deskmonkey/internal/toolkit"

// SynthCall records a single call made against InputSynth.
type SynthCall struct {
	Op       string
	Widget   toolkit.Widget
	Button   toolkit.MouseButton
	Point    toolkit.Point
	DblClick bool
	Key      int
	Mods     int
	Item     any
	Index    toolkit.ViewIndex
	Text     string
}

// InputSynth is a fake toolkit.InputSynth that records every call for
// assertions and, for the find-and-act methods, reports ok=true
// unconditionally (the corresponding Finder interfaces already did the
// finding; by the time InputSynth is called, the item is known to exist).
type InputSynth struct {
	Calls []SynthCall
}

func (s *InputSynth) ClickMouse(w toolkit.Widget, btn toolkit.MouseButton, local toolkit.Point, dbl bool) {
	s.Calls = append(s.Calls, SynthCall{Op: "click", Widget: w, Button: btn, Point: local, DblClick: dbl})
}

func (s *InputSynth) PressKey(w toolkit.Widget, key int, modifiers int) {
	s.Calls = append(s.Calls, SynthCall{Op: "key", Widget: w, Key: key, Mods: modifiers})
}

func (s *InputSynth) ActivateTreeItem(w toolkit.Widget, item toolkit.TreeItem, dblClick bool) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "activateTree", Widget: w, Item: item, DblClick: dblClick})
	return true
}

func (s *InputSynth) ExpandTreeItem(w toolkit.Widget, item toolkit.TreeItem) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "expandTree", Widget: w, Item: item})
	return true
}

func (s *InputSynth) ActivateListItem(w toolkit.Widget, item toolkit.ListItem, dblClick bool) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "activateList", Widget: w, Item: item, DblClick: dblClick})
	return true
}

func (s *InputSynth) ActivateViewIndex(w toolkit.Widget, idx toolkit.ViewIndex, dblClick bool) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "activateView", Widget: w, Index: idx, DblClick: dblClick})
	return true
}

func (s *InputSynth) ExpandViewIndex(w toolkit.Widget, idx toolkit.ViewIndex) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "expandView", Widget: w, Index: idx})
	return true
}

func (s *InputSynth) ActivateTabItem(w toolkit.Widget, index int) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "activateTab", Widget: w, Index: toolkit.ViewIndex{Row: index}})
	return true
}

func (s *InputSynth) ActivateMenuItem(w toolkit.Widget, actionText string) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "activateMenu", Widget: w, Text: actionText})
	return true
}

func (s *InputSynth) PressButtonWithText(parent toolkit.Widget, text string) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "pressButton", Widget: parent, Text: text})
	return true
}

func (s *InputSynth) ActivateSubWindow(workspace toolkit.Widget, subWindow toolkit.Widget) bool {
	s.Calls = append(s.Calls, SynthCall{Op: "activateSubWindow", Widget: workspace, Item: subWindow})
	return true
}
