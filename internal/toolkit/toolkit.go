// Package toolkit declares the narrow interfaces the recorder, the GUI
// invoker and the script API surface need from the host widget toolkit. The
// toolkit itself — its event dispatch, its concrete widget types, its
// synthetic-input helpers — is an external collaborator; production code
// talks only to these seams, and tests drive them with the fake
// implementation in toolkit/fake.
package toolkit

import "time"

// MouseButton mirrors the toolkit's button enum in the spec's recorded
// dialect (Qt.LeftButton, Qt.RightButton, Qt.MidButton).
type MouseButton int

const (
	NoButton MouseButton = iota
	LeftButton
	RightButton
	MidButton
)

func (b MouseButton) String() string {
	switch b {
	case LeftButton:
		return "Qt.LeftButton"
	case RightButton:
		return "Qt.RightButton"
	case MidButton:
		return "Qt.MidButton"
	default:
		return "<unknown button>"
	}
}

// ParseMouseButton is the inverse of MouseButton.String, used when a script
// passes a button name as an argument.
func ParseMouseButton(s string) (MouseButton, bool) {
	switch s {
	case "Qt.LeftButton":
		return LeftButton, true
	case "Qt.RightButton":
		return RightButton, true
	case "Qt.MidButton":
		return MidButton, true
	}
	return NoButton, false
}

// EventKind enumerates the toolkit event types the analyzer and invoker
// care about.
type EventKind int

const (
	KeyPress EventKind = iota
	KeyRelease
	MouseButtonPress
	MouseButtonDblClick
	MouseButtonRelease
	Other
)

// Point is a 2D widget- or screen-space coordinate.
type Point struct{ X, Y int }

// KeyEvent is a key press or release as seen by the event filter.
type KeyEvent struct {
	Kind      EventKind
	Key       int
	Modifiers int
	At        time.Time
	// IsModifierOnly is set by the toolkit adapter when Key is a bare
	// modifier (Shift, Alt, Control, Meta) with no other key involved;
	// the recorder ignores these on their own.
	IsModifierOnly bool
}

// MouseEvent is a mouse press, double-click, or release as seen by the
// event filter.
type MouseEvent struct {
	Kind        EventKind
	GlobalPoint Point
	Button      MouseButton
	At          time.Time
}

// Event is the filter's view of an arbitrary toolkit event; exactly one of
// Key/Mouse is populated, or neither for events the recorder treats
// generically (EventKind is still meaningful in that case).
type Event struct {
	Kind  EventKind
	Key   *KeyEvent
	Mouse *MouseEvent
	Raw   any
}

// WidgetKind is the small set of concrete widget classes the recognizer
// chain distinguishes. "Generic" covers everything else.
type WidgetKind int

const (
	Generic WidgetKind = iota
	Menu
	TreeWidget
	ComboBox
	ListWidget
	TabBar
	TreeView
	ListView
	MDITitleBar
	PushButton
)

// Widget is the read-only surface the recorder and script API need from a
// live widget: identity, geometry, and enough structure to compute an
// identifier path and answer recognizer questions.
type Widget interface {
	ObjectName() string
	ClassName() string
	Kind() WidgetKind
	Parent() Widget
	Children() []Widget
	// GlobalCenter is used by getWidget to verify the widget is actually
	// on screen.
	GlobalCenter() Point
	MapFromGlobal(p Point) Point
	MapToGlobal(p Point) Point
	IsVisible() bool
	IsEnabled() bool
	IsTopLevel() bool
	// Text returns the widget's own caption/text, for buttons, menu
	// actions, and tree/list/combo items addressed indirectly through it.
	Text() string
}

// Expandable is implemented by tree-widget and tree-view widgets that can
// notify observers when an item expands or the widget itself is destroyed.
// The recorder uses this to turn a later expansion into a recorded
// `expandItemInTree` line, for tree widgets and tree views alike.
type Expandable interface {
	Widget
	OnItemExpanded(cb func(item TreeItem)) (unsubscribe func())
	OnDestroyed(cb func()) (unsubscribe func())
}

// TreeItem, ListItem and ViewIndex model the item-level addressing the
// recognizer chain and the script API use for composite widgets.
type TreeItem interface {
	Text() string
}

type ListItem interface {
	Text() string
}

type ViewIndex struct {
	Row, Column int
	Parent      *ViewIndex
}

// TreeItemLocator is implemented by tree widgets that can map a local point
// to the item under it.
type TreeItemLocator interface {
	Widget
	ItemAt(local Point) TreeItem
}

// ListItemLocator is implemented by list widgets that can map a local point
// to the item under it.
type ListItemLocator interface {
	Widget
	ItemAt(local Point) ListItem
}

// ViewIndexLocator is implemented by model/view widgets (tree-view,
// list-view) that can map a local point to a model index.
type ViewIndexLocator interface {
	Widget
	IndexAt(local Point) (ViewIndex, bool)
}

// ItemTextLister answers an item's display text by row, used for the
// combo-box popup list and similar flat item lists.
type ItemTextLister interface {
	ItemText(row int) string
}

// TabLocator is implemented by tab bars that can map a local point to a
// tab's text.
type TabLocator interface {
	Widget
	TabAt(local Point) (text string, ok bool)
}

// TreeItemFinder is implemented by tree widgets that can look an item up by
// its display text, for getWidget-driven replay (activateItem,
// expandItemInTree) as opposed to ItemAt's point-based lookup used when
// recording.
type TreeItemFinder interface {
	Widget
	FindTreeItem(text string) (TreeItem, bool)
}

// ListItemFinder is the list-widget analogue of TreeItemFinder.
type ListItemFinder interface {
	Widget
	FindListItem(text string) (ListItem, bool)
}

// ViewTextFinder is implemented by model/view widgets addressed by item text
// rather than by explicit row/column path — combo-box popups and
// list-views.
type ViewTextFinder interface {
	Widget
	FindItemIndexByText(text string) (ViewIndex, bool)
}

// TabFinder is the replay-side counterpart to TabLocator: find a tab's
// index by its text.
type TabFinder interface {
	Widget
	FindTabIndex(text string) (int, bool)
}

// Application is the process-wide toolkit handle: widget lookup, the
// currently active modal/popup/top window, and the widget under a global
// point.
type Application interface {
	WidgetAt(p Point) Widget
	Root() Widget
	AllWidgets() []Widget
	ActiveModalWidget() Widget
	ActivePopupWidget() Widget
	ActiveWindow() Widget
	CursorPos() Point
	MoveCursorTo(p Point)
}

// InputSynth synthesizes input events against a live widget. Every method
// must be called from the GUI thread. The bool-returning methods report
// whether the target item/action was actually there to act on, mirroring
// the original's per-widget-kind activation helpers which each search their
// widget's own items before clicking.
type InputSynth interface {
	ClickMouse(w Widget, btn MouseButton, local Point, dblClick bool)
	PressKey(w Widget, key int, modifiers int)
	ActivateTreeItem(w Widget, item TreeItem, dblClick bool) bool
	ExpandTreeItem(w Widget, item TreeItem) bool
	ActivateListItem(w Widget, item ListItem, dblClick bool) bool
	ActivateViewIndex(w Widget, idx ViewIndex, dblClick bool) bool
	ExpandViewIndex(w Widget, idx ViewIndex) bool
	ActivateTabItem(w Widget, index int) bool
	ActivateMenuItem(w Widget, actionText string) bool
	PressButtonWithText(parent Widget, text string) bool
	ActivateSubWindow(workspace Widget, subWindow Widget) bool
}
