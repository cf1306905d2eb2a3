package vdom

// Model is the JSON form of an element as the client sees it. Components do
// not appear in models: a component is replaced by what it rendered. Text
// children are encoded as plain strings.
type Model struct {
	TagName       string               `json:"tagName"`
	Key           string               `json:"key,omitempty"`
	Attributes    map[string]any       `json:"attributes,omitempty"`
	EventHandlers map[string]EventSpec `json:"eventHandlers,omitempty"`
	Children      []any                `json:"children,omitempty"`
	ImportSource  *ImportSource        `json:"importSource,omitempty"`
}

// Encode converts a rendered tree into its client model. The result is a
// string for text nodes and a *Model for everything else. Event handler
// targets are derived from node ids, so ids must have been assigned.
func Encode(node *VNode) any {
	if node == nil {
		return &Model{}
	}
	switch node.Kind {
	case KindText:
		return node.Text
	case KindComponent:
		return Encode(node.Rendered())
	}

	m := &Model{
		TagName:      node.Tag,
		Key:          node.Key,
		ImportSource: node.ImportSource,
	}
	if len(node.Props) > 0 {
		m.Attributes = EncodeAttributes(node.Props)
	}
	if len(node.Events) > 0 {
		m.EventHandlers = EncodeEvents(node)
	}
	if len(node.Children) > 0 {
		m.Children = EncodeChildren(node.Children)
	}
	return m
}

// EncodeChildren encodes a list of children.
func EncodeChildren(children []*VNode) []any {
	out := make([]any, 0, len(children))
	for _, child := range children {
		out = append(out, Encode(child))
	}
	return out
}

// EncodeAttributes copies attribute values for the wire.
func EncodeAttributes(props Props) map[string]any {
	attrs := make(map[string]any, len(props))
	for k, v := range props {
		attrs[k] = v
	}
	return attrs
}

// EncodeEvents returns the event specs of an element.
func EncodeEvents(node *VNode) map[string]EventSpec {
	specs := make(map[string]EventSpec, len(node.Events))
	for name, h := range node.Events {
		specs[name] = SpecFor(node.ID, name, h)
	}
	return specs
}

// SpecFor returns the wire spec of the handler bound to event on the node
// with id.
func SpecFor(nodeID, event string, h EventHandler) EventSpec {
	return EventSpec{
		Target:          TargetID(nodeID, event),
		PreventDefault:  h.PreventDefault,
		StopPropagation: h.StopPropagation,
	}
}
