package vdom

import (
	"context"
	"sort"
)

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindFragment               // Grouping without wrapper (empty tag name)
	KindComponent              // Nested component
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// VNode is the virtual DOM node.
type VNode struct {
	Kind         VKind                   // Node type
	Tag          string                  // Element tag name (e.g., "div")
	Props        Props                   // Attributes
	Events       map[string]EventHandler // Event name ("onclick") -> handler
	Children     []*VNode                // Child nodes
	Key          string                  // Reconciliation key
	Text         string                  // For KindText
	Comp         Component               // For KindComponent
	ImportSource *ImportSource           // Where the client loads a custom element from
	ID           string                  // Stable node id (assigned by the layout)
}

// Props holds element attributes.
type Props map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// EventHandler binds a handler to an event name. The handler may be any of
// the function shapes the layout understands (func(), func(Event), ...).
type EventHandler struct {
	Event           string // "onclick", "oninput", etc.
	Handler         any    // Function to call
	PreventDefault  bool
	StopPropagation bool
}

// EventSpec is what the client learns about a handler: where to send the
// event and what to do with the native event before sending it.
type EventSpec struct {
	Target          string `json:"target"`
	PreventDefault  bool   `json:"preventDefault,omitempty"`
	StopPropagation bool   `json:"stopPropagation,omitempty"`
}

// ImportSource tells the client where to load the implementation of a custom
// element from.
type ImportSource struct {
	Source     string `json:"source"`
	SourceType string `json:"sourceType,omitempty"` // "NAME" or "URL"
	Fallback   string `json:"fallback,omitempty"`
}

// ComponentType identifies a component definition. Two component nodes are
// the same logical component only if their types have the same ID.
type ComponentType struct {
	ID   uint64
	Name string
}

// Component is anything the layout can render into a VNode.
//
// Render is called by the layout with a context that carries the component's
// hook frame; hooks called with that context resolve to the component's
// state. It may return an element, a text node, another component, or nil.
type Component interface {
	Type() ComponentType
	Key() string
	Render(ctx context.Context) *VNode
}

// IsInteractive returns true if this node has event handlers.
func (v *VNode) IsInteractive() bool {
	return v != nil && v.Kind == KindElement && len(v.Events) > 0
}

// EventNames returns the node's event names in sorted order.
func (v *VNode) EventNames() []string {
	if v == nil || len(v.Events) == 0 {
		return nil
	}
	names := make([]string, 0, len(v.Events))
	for name := range v.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rendered returns the node a component node rendered to, or nil.
func (v *VNode) Rendered() *VNode {
	if v == nil || v.Kind != KindComponent || len(v.Children) == 0 {
		return nil
	}
	return v.Children[0]
}

// ComponentNode wraps a component in a VNode.
func ComponentNode(c Component) *VNode {
	return &VNode{
		Kind: KindComponent,
		Comp: c,
		Key:  c.Key(),
	}
}
