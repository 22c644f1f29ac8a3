package fake

import "github.com/ehrlich-b/deskmonkey/internal/toolkit"

// Application is a fake toolkit.Application: a static widget tree plus a
// movable cursor and settable active-window pointers.
type Application struct {
	RootW   toolkit.Widget
	All     []toolkit.Widget
	Cursor  toolkit.Point
	Modal   toolkit.Widget
	Popup   toolkit.Widget
	Active  toolkit.Widget
	AtPoint map[toolkit.Point]toolkit.Widget
}

func NewApplication(root toolkit.Widget) *Application {
	return &Application{RootW: root, AtPoint: make(map[toolkit.Point]toolkit.Widget)}
}

func (a *Application) WidgetAt(p toolkit.Point) toolkit.Widget { return a.AtPoint[p] }
func (a *Application) Root() toolkit.Widget                    { return a.RootW }
func (a *Application) AllWidgets() []toolkit.Widget            { return a.All }
func (a *Application) ActiveModalWidget() toolkit.Widget       { return a.Modal }
func (a *Application) ActivePopupWidget() toolkit.Widget       { return a.Popup }
func (a *Application) ActiveWindow() toolkit.Widget            { return a.Active }
func (a *Application) CursorPos() toolkit.Point                { return a.Cursor }
func (a *Application) MoveCursorTo(p toolkit.Point)            { a.Cursor = p }
