// Package recorder implements the toolkit event filter that turns user
// gestures into recorded script lines: identifier-path addressing, the
// recognizer chain, and event de-duplication.
package recorder

import (
	"fmt"
	"strings"

	"github.com/ehrlich-b/deskmonkey/internal/toolkit"
)

// segmentID is a single widget's own identifier: its object name if set,
// otherwise <class_name=C[,k]> where k is its zero-based index among
// same-class siblings (omitted when 0).
func segmentID(w toolkit.Widget) string {
	if name := w.ObjectName(); name != "" {
		return name
	}
	order := orderAmongSameClassSiblings(w)
	if order == 0 {
		return fmt.Sprintf("<class_name=%s>", w.ClassName())
	}
	return fmt.Sprintf("<class_name=%s,%d>", w.ClassName(), order)
}

func orderAmongSameClassSiblings(w toolkit.Widget) int {
	parent := w.Parent()
	if parent == nil {
		return 0
	}
	order := 0
	for _, sibling := range parent.Children() {
		if sibling == w {
			return order
		}
		if sibling.ClassName() == w.ClassName() {
			order++
		}
	}
	return 0
}

// FullWidgetID computes the dotted identifier path for w: the root's own
// segment first, then each descendant's, ending with w itself — so
// getWidget can resolve it by finding the first segment anywhere in the
// application and then descending through children for the rest.
func FullWidgetID(w toolkit.Widget) string {
	segments := []string{segmentID(w)}
	for cur := w.Parent(); cur != nil; cur = cur.Parent() {
		segments = append(segments, segmentID(cur))
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, ".")
}

// isOnlyChildOfItsClass reports whether w has a parent and no sibling of
// the same class; it reports false for a widget without a parent.
func isOnlyChildOfItsClass(w toolkit.Widget) bool {
	parent := w.Parent()
	if parent == nil {
		return false
	}
	for _, sibling := range parent.Children() {
		if sibling != w && sibling.ClassName() == w.ClassName() {
			return false
		}
	}
	return true
}

// nearestNamedAncestor climbs from w until it finds a widget with a
// non-empty object name, returning nil if none exists before the root.
func nearestNamedAncestor(w toolkit.Widget) toolkit.Widget {
	cur := w
	for cur != nil && cur.ObjectName() == "" {
		cur = cur.Parent()
	}
	return cur
}
