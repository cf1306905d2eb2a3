package component

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/vdom"
)

var typeIDs atomic.Uint64

// ReservedParameterError is the panic value of Define and New when props
// try to declare "key", which the layout reserves for reconciliation.
type ReservedParameterError struct {
	Component string
	Field     string
}

func (e *ReservedParameterError) Error() string {
	return e.Unwrap().Error()
}

// Unwrap returns the coded engine error.
func (e *ReservedParameterError) Unwrap() error {
	return errors.New(errors.CodeReservedParameter).
		WithComponent(e.Component).
		WithDetailf("Props field %q collides with the reserved key parameter.", e.Field)
}

// Definition is a named render function with typed props. Create instances
// with New or Keyed.
type Definition[P any] struct {
	typ vdom.ComponentType
	fn  func(ctx context.Context, props P) *vdom.VNode
}

// Define registers a component. Every definition gets its own type: two
// definitions never match during reconciliation, even with the same name.
//
//	var TodoItem = component.Define("TodoItem", func(ctx context.Context, p TodoProps) *vdom.VNode {
//	    return vdom.Li(vdom.Text(p.Title))
//	})
//
//	vdom.Ul(TodoItem.Keyed(todo.ID, TodoProps{Title: todo.Title}))
func Define[P any](name string, fn func(ctx context.Context, props P) *vdom.VNode) *Definition[P] {
	if field, ok := reservedField(reflect.TypeOf((*P)(nil)).Elem()); ok {
		panic(&ReservedParameterError{Component: name, Field: field})
	}
	return &Definition[P]{
		typ: vdom.ComponentType{ID: typeIDs.Add(1), Name: name},
		fn:  fn,
	}
}

// Func defines a component without props.
func Func(name string, fn func(ctx context.Context) *vdom.VNode) *Definition[struct{}] {
	return Define(name, func(ctx context.Context, _ struct{}) *vdom.VNode {
		return fn(ctx)
	})
}

// Type returns the definition's component type.
func (d *Definition[P]) Type() vdom.ComponentType { return d.typ }

// New creates an unkeyed instance.
func (d *Definition[P]) New(props P) *Node[P] {
	return d.Keyed("", props)
}

// Keyed creates an instance with a reconciliation key.
func (d *Definition[P]) Keyed(key string, props P) *Node[P] {
	if m := reflect.ValueOf(props); m.Kind() == reflect.Map && m.Type().Key().Kind() == reflect.String {
		if m.MapIndex(reflect.ValueOf("key").Convert(m.Type().Key())).IsValid() {
			panic(&ReservedParameterError{Component: d.typ.Name, Field: "key"})
		}
	}
	return &Node[P]{def: d, key: key, props: props}
}

// Node is one use of a component in a tree. It implements vdom.Component.
type Node[P any] struct {
	def   *Definition[P]
	key   string
	props P
}

// Type returns the component type of the node's definition.
func (n *Node[P]) Type() vdom.ComponentType { return n.def.typ }

// Key returns the node's reconciliation key.
func (n *Node[P]) Key() string { return n.key }

// Props returns the props the node was created with.
func (n *Node[P]) Props() P { return n.props }

// Render calls the render function. ctx must carry the hook frame of the
// node's mounted instance.
func (n *Node[P]) Render(ctx context.Context) *vdom.VNode {
	return n.def.fn(ctx, n.props)
}

// String returns the component name and key, for logs.
func (n *Node[P]) String() string {
	if n.key == "" {
		return n.def.typ.Name
	}
	return fmt.Sprintf("%s[%s]", n.def.typ.Name, n.key)
}

// reservedField reports a props field that would shadow the key.
func reservedField(t reflect.Type) (string, bool) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return "", false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "Key" {
			return f.Name, true
		}
		if tag, ok := f.Tag.Lookup("key"); ok && tag != "-" {
			return f.Name, true
		}
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name == "key" {
			return f.Name, true
		}
	}
	return "", false
}
