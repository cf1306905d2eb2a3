// Package vdom provides the virtual DOM model rendered by components.
//
// The tree lives on the server. Components render VNodes, the layout
// reconciles successive renders, and the client receives either the whole
// tree encoded as a Model or a list of Patch operations against the model it
// already has.
//
// # Core Types
//
// VNode is the fundamental building block representing elements, text,
// fragments and components. Props holds attributes; Events maps event names
// to handlers. ImportSource marks elements whose implementation the client
// loads from elsewhere.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1("Title"),
//	    P(Text("Content")),
//	    Button(OnClick(handler), "Save"),
//	)
//
// A Key attribute marks a node for keyed reconciliation; it is never sent to
// the client as an attribute.
//
// # Patches
//
// Patches are JSON Patch operations addressed by JSON pointers into the
// client model ("/children/0/attributes/class"). Each patch also carries a
// Kind naming what it means (set-attribute, move, ...).
//
// # Equality
//
// Equal compares trees structurally. Handler functions are never compared:
// handlers are rebound on every render, only the set of event names matters.
package vdom
