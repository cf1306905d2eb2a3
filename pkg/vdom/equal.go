package vdom

import (
	"reflect"
)

// SameNode reports whether a and b are the same logical node: same kind,
// same tag (or component type) and same key. Nodes that are the same logical
// node are diffed; anything else is replaced.
func SameNode(a, b *VNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Key != b.Key {
		return false
	}
	switch a.Kind {
	case KindElement:
		return a.Tag == b.Tag
	case KindComponent:
		return a.Comp != nil && b.Comp != nil && a.Comp.Type().ID == b.Comp.Type().ID
	default:
		return true
	}
}

// Equal reports whether two trees have the same shape. Handler functions are
// not compared, only the set of event names and their modifiers. Node ids are
// ignored. Component nodes compare by type and key and then by what they
// rendered, if anything.
func Equal(a, b *VNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !SameNode(a, b) {
		return false
	}
	switch a.Kind {
	case KindText:
		return a.Text == b.Text
	case KindComponent:
		return Equal(a.Rendered(), b.Rendered())
	}

	if !PropsEqual(a.Props, b.Props) {
		return false
	}
	if !eventsEqual(a.Events, b.Events) {
		return false
	}
	if !reflect.DeepEqual(a.ImportSource, b.ImportSource) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// PropsEqual compares two attribute maps. A nil map equals an empty one.
func PropsEqual(a, b Props) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !ValueEqual(av, bv) {
			return false
		}
	}
	return true
}

func eventsEqual(a, b map[string]EventHandler) bool {
	if len(a) != len(b) {
		return false
	}
	for name, ah := range a {
		bh, ok := b[name]
		if !ok {
			return false
		}
		if ah.PreventDefault != bh.PreventDefault || ah.StopPropagation != bh.StopPropagation {
			return false
		}
	}
	return true
}

// ValueEqual compares two attribute values for equality.
func ValueEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}
