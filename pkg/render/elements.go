package render

// isVoidElement reports whether tag has no closing tag. Children of a void
// element in a model are ignored.
func isVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "source", "track", "wbr":
		return true
	}
	return false
}

// isInlineElement reports whether tag keeps its children on one line in
// pretty output. Only the phrasing tags the vdom package builds are listed;
// anything else is laid out as a block.
func isInlineElement(tag string) bool {
	switch tag {
	case "a", "button", "code", "em", "label", "small", "span", "strong":
		return true
	}
	return false
}

// isBooleanAttr reports whether name is rendered as a bare name when true
// and omitted when false. Other attributes with boolean values are rendered
// as "true" or "false".
func isBooleanAttr(name string) bool {
	switch name {
	case "async", "autofocus", "autoplay", "checked", "controls", "defer",
		"disabled", "hidden", "multiple", "muted", "nomodule", "novalidate",
		"open", "readonly", "required", "selected":
		return true
	}
	return false
}
