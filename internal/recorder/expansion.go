package recorder

import (
	"fmt"
	"sync"

	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
)

// ExpansionWatcher tracks tree-widget/tree-view subscriptions so that an
// item expansion observed after a recorded click produces a trailing
// expandItemInTree line naming the expanded item's text. Tree views get
// the same expandItemInTree line; no expandItemInTreeView line is
// recorded. Subscribing twice for the same widget is a
// no-op; a subscription is removed when the widget is destroyed or on the
// next mouse release, whichever comes first.
type ExpansionWatcher struct {
	mu      sync.Mutex
	watched map[toolkit.Expandable]func()
}

// NewExpansionWatcher creates an empty watcher.
func NewExpansionWatcher() *ExpansionWatcher {
	return &ExpansionWatcher{watched: make(map[toolkit.Expandable]func())}
}

// Watch idempotently subscribes w for item-expanded notifications, emitting
// an expandItemInTree line through emit using idPath as the widget's
// identifier.
func (ew *ExpansionWatcher) Watch(w toolkit.Expandable, idPath string, emit AsyncEmit) {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	if _, already := ew.watched[w]; already {
		return
	}

	unsubExpand := w.OnItemExpanded(func(item toolkit.TreeItem) {
		emit(fmt.Sprintf("Test.expandItemInTree('%s', '%s');", idPath, escapeForScript(item.Text())))
		ew.remove(w)
	})
	unsubDestroy := w.OnDestroyed(func() {
		ew.remove(w)
	})
	ew.watched[w] = func() {
		unsubExpand()
		unsubDestroy()
	}
}

// ReleaseAll disconnects every pending subscription, called on mouse
// release per spec §4.3 step 3.
func (ew *ExpansionWatcher) ReleaseAll() {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	for w, cleanup := range ew.watched {
		cleanup()
		delete(ew.watched, w)
	}
}

func (ew *ExpansionWatcher) remove(w toolkit.Expandable) {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	if cleanup, ok := ew.watched[w]; ok {
		cleanup()
		delete(ew.watched, w)
	}
}
