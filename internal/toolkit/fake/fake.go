// Package fake provides an in-memory implementation of the toolkit
// interfaces for tests: a tree of widgets addressable by name/class, a
// cursor, and a trivial input synthesizer that records what was
// synthesized.
package fake

import (
	"sync"

	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
)

// Widget is the base test double implementing toolkit.Widget. Composite
// kinds (tree widgets, list widgets, ...) embed it and add whichever
// locator interface their kind needs, since a single concrete type cannot
// implement two different ItemAt signatures at once.
type Widget struct {
	Name     string
	Class    string
	KindV    toolkit.WidgetKind
	Caption  string
	ParentW  *Widget
	Kids     []toolkit.Widget
	Center   toolkit.Point
	Visible  bool
	Enabled  bool
	TopLevel bool
}

func (w *Widget) ObjectName() string        { return w.Name }
func (w *Widget) ClassName() string         { return w.Class }
func (w *Widget) Kind() toolkit.WidgetKind  { return w.KindV }
func (w *Widget) Parent() toolkit.Widget {
	if w.ParentW == nil {
		return nil
	}
	return w.ParentW
}
func (w *Widget) Children() []toolkit.Widget { return w.Kids }
func (w *Widget) GlobalCenter() toolkit.Point { return w.Center }
func (w *Widget) MapFromGlobal(p toolkit.Point) toolkit.Point {
	return toolkit.Point{X: p.X - w.Center.X, Y: p.Y - w.Center.Y}
}
func (w *Widget) MapToGlobal(p toolkit.Point) toolkit.Point {
	return toolkit.Point{X: p.X + w.Center.X, Y: p.Y + w.Center.Y}
}
func (w *Widget) IsVisible() bool  { return w.Visible }
func (w *Widget) IsEnabled() bool  { return w.Enabled }
func (w *Widget) IsTopLevel() bool { return w.TopLevel }
func (w *Widget) Text() string     { return w.Caption }

// expansion provides the OnItemExpanded/OnDestroyed subscription bookkeeping
// shared by TreeWidget and TreeView.
type expansion struct {
	mu          sync.Mutex
	expandedCbs []func(toolkit.TreeItem)
	destroyCbs  []func()
}

func (e *expansion) OnItemExpanded(cb func(toolkit.TreeItem)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expandedCbs = append(e.expandedCbs, cb)
	idx := len(e.expandedCbs) - 1
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if idx < len(e.expandedCbs) {
			e.expandedCbs[idx] = nil
		}
	}
}

func (e *expansion) OnDestroyed(cb func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyCbs = append(e.destroyCbs, cb)
	idx := len(e.destroyCbs) - 1
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if idx < len(e.destroyCbs) {
			e.destroyCbs[idx] = nil
		}
	}
}

func (e *expansion) FireExpanded(item toolkit.TreeItem) {
	e.mu.Lock()
	cbs := append([]func(toolkit.TreeItem){}, e.expandedCbs...)
	e.mu.Unlock()
	for _, cb := range cbs {
		if cb != nil {
			cb(item)
		}
	}
}

func (e *expansion) FireDestroyed() {
	e.mu.Lock()
	cbs := append([]func(){}, e.destroyCbs...)
	e.mu.Unlock()
	for _, cb := range cbs {
		if cb != nil {
			cb()
		}
	}
}

// TreeItem and ListItem are trivial text-only item doubles.
type TreeItem struct{ TextV string }

func (t *TreeItem) Text() string { return t.TextV }

type ListItem struct{ TextV string }

func (l *ListItem) Text() string { return l.TextV }

// TreeWidget is a fake tree widget: item-at-point lookup plus expansion
// subscriptions.
type TreeWidget struct {
	*Widget
	expansion
	Items map[toolkit.Point]*TreeItem
}

func NewTreeWidget(w *Widget) *TreeWidget {
	w.KindV = toolkit.TreeWidget
	return &TreeWidget{Widget: w, Items: make(map[toolkit.Point]*TreeItem)}
}

func (t *TreeWidget) ItemAt(p toolkit.Point) toolkit.TreeItem {
	if it, ok := t.Items[p]; ok {
		return it
	}
	return nil
}

func (t *TreeWidget) FindTreeItem(text string) (toolkit.TreeItem, bool) {
	for _, it := range t.Items {
		if it.TextV == text {
			return it, true
		}
	}
	return nil, false
}

// ListWidget is a fake flat list widget.
type ListWidget struct {
	*Widget
	Items map[toolkit.Point]*ListItem
}

func NewListWidget(w *Widget) *ListWidget {
	w.KindV = toolkit.ListWidget
	return &ListWidget{Widget: w, Items: make(map[toolkit.Point]*ListItem)}
}

func (l *ListWidget) ItemAt(p toolkit.Point) toolkit.ListItem {
	if it, ok := l.Items[p]; ok {
		return it
	}
	return nil
}

func (l *ListWidget) FindListItem(text string) (toolkit.ListItem, bool) {
	for _, it := range l.Items {
		if it.TextV == text {
			return it, true
		}
	}
	return nil, false
}

// ComboBox is a fake combo box: its popup is addressed via IndexAt/ItemText.
type ComboBox struct {
	*Widget
	Rows  map[toolkit.Point]toolkit.ViewIndex
	Texts []string
}

func NewComboBox(w *Widget) *ComboBox {
	w.KindV = toolkit.ComboBox
	return &ComboBox{Widget: w, Rows: make(map[toolkit.Point]toolkit.ViewIndex)}
}

func (c *ComboBox) IndexAt(p toolkit.Point) (toolkit.ViewIndex, bool) {
	idx, ok := c.Rows[p]
	return idx, ok
}

func (c *ComboBox) ItemText(row int) string {
	if row < 0 || row >= len(c.Texts) {
		return ""
	}
	return c.Texts[row]
}

func (c *ComboBox) FindItemIndexByText(text string) (toolkit.ViewIndex, bool) {
	for row, t := range c.Texts {
		if t == text {
			return toolkit.ViewIndex{Row: row}, true
		}
	}
	return toolkit.ViewIndex{}, false
}

// TabBar is a fake tab bar addressed via TabAt (by point, for recording) or
// FindTabIndex (by text, for replay); TabTexts holds the ordered tab labels
// backing FindTabIndex.
type TabBar struct {
	*Widget
	Tabs     map[toolkit.Point]string
	TabTexts []string
}

func NewTabBar(w *Widget) *TabBar {
	w.KindV = toolkit.TabBar
	return &TabBar{Widget: w, Tabs: make(map[toolkit.Point]string)}
}

func (t *TabBar) TabAt(p toolkit.Point) (string, bool) {
	text, ok := t.Tabs[p]
	return text, ok
}

func (t *TabBar) FindTabIndex(text string) (int, bool) {
	for i, tab := range t.TabTexts {
		if tab == text {
			return i, true
		}
	}
	return 0, false
}

// TreeView is a fake model/view tree widget with expansion subscriptions.
type TreeView struct {
	*Widget
	expansion
	Rows map[toolkit.Point]toolkit.ViewIndex
}

func NewTreeView(w *Widget) *TreeView {
	w.KindV = toolkit.TreeView
	return &TreeView{Widget: w, Rows: make(map[toolkit.Point]toolkit.ViewIndex)}
}

func (t *TreeView) IndexAt(p toolkit.Point) (toolkit.ViewIndex, bool) {
	idx, ok := t.Rows[p]
	return idx, ok
}

// ListView is a fake model/view flat list widget. RowTexts holds each row's
// display text by index, backing FindItemIndexByText.
type ListView struct {
	*Widget
	Rows     map[toolkit.Point]toolkit.ViewIndex
	RowTexts []string
}

func NewListView(w *Widget) *ListView {
	w.KindV = toolkit.ListView
	return &ListView{Widget: w, Rows: make(map[toolkit.Point]toolkit.ViewIndex)}
}

func (l *ListView) IndexAt(p toolkit.Point) (toolkit.ViewIndex, bool) {
	idx, ok := l.Rows[p]
	return idx, ok
}

func (l *ListView) FindItemIndexByText(text string) (toolkit.ViewIndex, bool) {
	for row, t := range l.RowTexts {
		if t == text {
			return toolkit.ViewIndex{Row: row}, true
		}
	}
	return toolkit.ViewIndex{}, false
}
