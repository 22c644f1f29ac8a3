package recorder

import (
	"testing"
	"time"

	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
	"github.com/ehrlich-b/deskmonkey/internal/toolkit/fake"
)

func TestTreeWidgetClickRecognizerEmitsActivateItem(t *testing.T) {
	root := &fake.Widget{Name: "root"}
	tw := fake.NewTreeWidget(&fake.Widget{Name: "tree", Class: "QTreeWidget", ParentW: root, Center: toolkit.Point{X: 100, Y: 100}})
	pt := toolkit.Point{X: 105, Y: 110}
	tw.Items[toolkit.Point{X: 5, Y: 10}] = &fake.TreeItem{TextV: "Node A"}

	watcher := NewExpansionWatcher()
	recognize := treeWidgetClickRecognizer(watcher)

	ev := toolkit.Event{
		Kind:  toolkit.MouseButtonPress,
		Mouse: &toolkit.MouseEvent{Kind: toolkit.MouseButtonPress, GlobalPoint: pt, At: time.Now()},
	}
	target := Target{Widget: tw, IDPath: FullWidgetID(tw)}

	var asyncCmds []string
	code := recognize(ev, target, func(c string) { asyncCmds = append(asyncCmds, c) })
	want := "Test.activateItem('root.tree', 'Node A');"
	if code != want {
		t.Fatalf("got %q, want %q", code, want)
	}

	tw.FireExpanded(&fake.TreeItem{TextV: "Node A"})
	if len(asyncCmds) != 1 || asyncCmds[0] != "Test.expandItemInTree('root.tree', 'Node A');" {
		t.Fatalf("got async commands %v", asyncCmds)
	}
}

func TestTreeWidgetDoubleClickEmitsDoubleClickItem(t *testing.T) {
	tw := fake.NewTreeWidget(&fake.Widget{Name: "tree", Class: "QTreeWidget", Center: toolkit.Point{}})
	tw.Items[toolkit.Point{X: 1, Y: 1}] = &fake.TreeItem{TextV: "Leaf"}
	watcher := NewExpansionWatcher()
	recognize := treeWidgetClickRecognizer(watcher)

	ev := toolkit.Event{
		Kind:  toolkit.MouseButtonDblClick,
		Mouse: &toolkit.MouseEvent{Kind: toolkit.MouseButtonDblClick, GlobalPoint: toolkit.Point{X: 1, Y: 1}, At: time.Now()},
	}
	code := recognize(ev, Target{Widget: tw, IDPath: "tree"}, func(string) {})
	if code != "Test.doubleClickItem('tree', 'Leaf');" {
		t.Fatalf("got %q", code)
	}
}

func TestComboBoxRecognizerEmitsActivateItem(t *testing.T) {
	combo := fake.NewComboBox(&fake.Widget{Name: "combo", Class: "QComboBox"})
	combo.Texts = []string{"Alpha", "Beta"}
	combo.Rows[toolkit.Point{X: 0, Y: 0}] = toolkit.ViewIndex{Row: 1}

	ev := toolkit.Event{
		Kind:  toolkit.MouseButtonPress,
		Mouse: &toolkit.MouseEvent{Kind: toolkit.MouseButtonPress, GlobalPoint: toolkit.Point{}, At: time.Now()},
	}
	code := comboAndListWidgetClickRecognizer(ev, Target{Widget: combo, IDPath: "combo"}, nil)
	if code != "Test.activateItem('combo', 'Beta');" {
		t.Fatalf("got %q", code)
	}
}

func TestMenuClickRecognizerUsesActivateMenuItemWhenUnnamed(t *testing.T) {
	menu := &fake.Widget{Class: "QMenu", KindV: toolkit.Menu, Caption: "Open"}
	ev := toolkit.Event{
		Kind:  toolkit.MouseButtonPress,
		Mouse: &toolkit.MouseEvent{Kind: toolkit.MouseButtonPress, GlobalPoint: toolkit.Point{}, At: time.Now()},
	}
	code := menuClickRecognizer(ev, Target{Widget: menu, IDPath: "<class_name=QMenu>"}, nil)
	if code != "Test.activateMenuItem('Open');" {
		t.Fatalf("got %q", code)
	}
}

func TestGenericFallbackFormatsMouseClick(t *testing.T) {
	mouse := &toolkit.MouseEvent{Kind: toolkit.MouseButtonPress, Button: toolkit.LeftButton}
	code := MouseEventToScript("root.button", mouse, toolkit.Point{X: 3, Y: 4})
	if code != "Test.mouseClick('root.button', 'Qt.LeftButton', 3, 4);" {
		t.Fatalf("got %q", code)
	}
}
