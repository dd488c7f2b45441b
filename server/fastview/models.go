// Package fastview wires a data-model channel through a view-model conversion
// to one or more server side views, each emitting element updates that are
// pushed to the browser over a websocket.
package fastview

import "html/template"

// EleUpdate is an element id and the operations to apply to it.
type EleUpdate struct {
	EleId string
	// Keys are attribute names, except 'textContent' which sets the element's text.
	Ops []Op
}

// Op is a key and value, e.g. an svg attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a server side view: a template for its initial form and a
// channel of the element updates that keep it current.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view's template to @parent, inheriting its func-map,
	// and returns the name under which it was defined.
	Parse(parent *template.Template) (string, error)
}
