package vdom

import "fmt"

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Fragment groups children without a wrapper element.
func Fragment(children ...any) *VNode {
	return createElement("", children)
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *VNode) *VNode {
	if condition {
		return node
	}
	return nil
}

// IfElse returns the first node if condition is true, the second otherwise.
func IfElse(condition bool, ifTrue, ifFalse *VNode) *VNode {
	if condition {
		return ifTrue
	}
	return ifFalse
}

// When is like If but with lazy evaluation.
// The function is only called if condition is true.
func When(condition bool, fn func() *VNode) *VNode {
	if condition {
		return fn()
	}
	return nil
}

// Unless is the inverse of If.
func Unless(condition bool, node *VNode) *VNode {
	if !condition {
		return node
	}
	return nil
}

// Range maps items to nodes. Nil results are dropped.
//
//	Ul(Range(todos, func(i int, t Todo) *VNode {
//	    return Li(Key(t.ID), t.Title)
//	}))
func Range[T any](items []T, fn func(int, T) *VNode) []*VNode {
	nodes := make([]*VNode, 0, len(items))
	for i, item := range items {
		if n := fn(i, item); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
