package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables indented output. Use it for debugging only: the extra
	// whitespace becomes text in the browser.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces.
	Indent string
}

// Renderer renders client models to HTML. A Renderer holds no per-render
// state and is safe for concurrent use.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders a model to an HTML string.
func (r *Renderer) RenderToString(model any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, model); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter renders a model to w.
//
// A model is a text string or an element, either as a *vdom.Model or in its
// generic JSON form (map[string]any). Elements with an empty tagName are
// fragments and render their children only. Event handlers render as
// data-on-<event> attributes holding the target id.
func (r *Renderer) RenderToWriter(w io.Writer, model any) error {
	hw := &htmlWriter{w: w}
	if err := r.renderNode(hw, model, 0); err != nil {
		return err
	}
	return hw.err
}

// htmlWriter remembers the first write error and drops later writes.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) WriteString(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (r *Renderer) renderNode(w *htmlWriter, node any, depth int) error {
	switch n := node.(type) {
	case nil:
		return nil
	case string:
		w.WriteString(escapeHTML(n))
		return nil
	case map[string]any:
		return r.renderElement(w, n, depth)
	default:
		generic, err := toGeneric(node)
		if err != nil {
			return err
		}
		switch generic.(type) {
		case nil, string, map[string]any:
			return r.renderNode(w, generic, depth)
		}
		return fmt.Errorf("render: unsupported model value %T", node)
	}
}

// toGeneric converts typed models to their JSON form.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("render: encode model: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("render: decode model: %w", err)
	}
	return out, nil
}

func (r *Renderer) renderElement(w *htmlWriter, el map[string]any, depth int) error {
	tag, _ := el["tagName"].(string)
	children, _ := el["children"].([]any)

	if tag == "" {
		for _, child := range children {
			if err := r.renderNode(w, child, depth); err != nil {
				return err
			}
		}
		return nil
	}
	if !validName(tag) {
		return fmt.Errorf("render: invalid tag name %q", tag)
	}

	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	w.WriteString("<" + tag)
	attrs, _ := el["attributes"].(map[string]any)
	if err := renderAttributes(w, attrs); err != nil {
		return err
	}
	handlers, _ := el["eventHandlers"].(map[string]any)
	renderEventHandlers(w, handlers)
	source, _ := el["importSource"].(map[string]any)
	renderImportSource(w, source)
	w.WriteString(">")

	if isVoidElement(tag) {
		if r.config.Pretty {
			w.WriteString("\n")
		}
		return nil
	}

	if raw, ok := attrs["dangerouslySetInnerHTML"].(string); ok {
		w.WriteString(raw)
	} else {
		if len(children) == 0 && source != nil {
			if fallback, ok := source["fallback"].(string); ok {
				w.WriteString(escapeHTML(fallback))
			}
		}

		block := len(children) > 0 && !isInlineElement(tag)
		if r.config.Pretty && block {
			w.WriteString("\n")
		}
		for _, child := range children {
			if err := r.renderNode(w, child, depth+1); err != nil {
				return err
			}
		}
		if r.config.Pretty && block {
			r.writeIndent(w, depth)
		}
	}

	w.WriteString("</" + tag + ">")
	if r.config.Pretty {
		w.WriteString("\n")
	}
	return nil
}

func renderAttributes(w *htmlWriter, attrs map[string]any) error {
	for _, key := range sortedKeys(attrs) {
		value := attrs[key]

		if strings.HasPrefix(key, "_") {
			continue
		}
		switch key {
		case "className":
			key = "class"
		case "htmlFor":
			key = "for"
		case "key", "dangerouslySetInnerHTML":
			continue
		}
		if !validName(key) {
			return fmt.Errorf("render: invalid attribute name %q", key)
		}

		if b, ok := value.(bool); ok && isBooleanAttr(key) {
			if b {
				w.WriteString(" " + key)
			}
			continue
		}

		s, err := attrToString(key, value)
		if err != nil {
			return err
		}
		if s != "" {
			w.WriteString(" " + key + `="` + escapeAttr(s) + `"`)
		}
	}
	return nil
}

// renderEventHandlers writes data-on-click="<target>" for an onclick handler,
// plus data-prevent-click and data-stop-click markers.
func renderEventHandlers(w *htmlWriter, handlers map[string]any) {
	for _, name := range sortedKeys(handlers) {
		spec, _ := handlers[name].(map[string]any)
		target, _ := spec["target"].(string)
		event := strings.ToLower(strings.TrimPrefix(name, "on"))
		if !validName(event) {
			continue
		}
		w.WriteString(" data-on-" + event + `="` + escapeAttr(target) + `"`)
		if b, _ := spec["preventDefault"].(bool); b {
			w.WriteString(" data-prevent-" + event)
		}
		if b, _ := spec["stopPropagation"].(bool); b {
			w.WriteString(" data-stop-" + event)
		}
	}
}

func renderImportSource(w *htmlWriter, source map[string]any) {
	if source == nil {
		return
	}
	if s, _ := source["source"].(string); s != "" {
		w.WriteString(` data-import-source="` + escapeAttr(s) + `"`)
	}
	if s, _ := source["sourceType"].(string); s != "" {
		w.WriteString(` data-import-type="` + escapeAttr(s) + `"`)
	}
}

// attrToString converts an attribute value to its HTML form. Style maps
// become declaration lists; other composite values are encoded as JSON.
func attrToString(key string, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case map[string]any:
		if key == "style" {
			var sb strings.Builder
			for i, prop := range sortedKeys(v) {
				if i > 0 {
					sb.WriteString(" ")
				}
				s, err := attrToString("", v[prop])
				if err != nil {
					return "", err
				}
				sb.WriteString(prop + ": " + s + ";")
			}
			return sb.String(), nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("render: attribute %s: %w", key, err)
	}
	return string(data), nil
}

// validName reports whether s can be written as a tag or attribute name
// without escaping.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == ':' || c == '.':
		default:
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Renderer) writeIndent(w *htmlWriter, depth int) {
	w.WriteString(strings.Repeat(r.config.Indent, depth))
}
