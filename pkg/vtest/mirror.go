package vtest

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/render"
)

// Mirror is a client-side copy of a layout's model. Updates are applied
// through their JSON encoding, so the mirror sees what a real client sees.
type Mirror struct {
	mu   sync.Mutex
	doc  []byte
	seq  uint64
	seen bool
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{}
}

// Apply applies an update. Updates must arrive in sequence order; patches
// are applied one by one as JSON Patch operations.
func (m *Mirror) Apply(u *protocol.LayoutUpdate) error {
	data, err := protocol.EncodeUpdate(u)
	if err != nil {
		return err
	}
	var wire struct {
		Seq     uint64            `json:"seq"`
		Root    json.RawMessage   `json:"root"`
		Changes []json.RawMessage `json:"changes"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen && wire.Seq <= m.seq {
		return fmt.Errorf("vtest: update %d after %d", wire.Seq, m.seq)
	}
	if len(wire.Root) > 0 {
		m.doc = wire.Root
	} else {
		if m.doc == nil {
			return fmt.Errorf("vtest: patch update %d before any full update", wire.Seq)
		}
		for i, op := range wire.Changes {
			doc, err := applyOp(m.doc, op)
			if err != nil {
				return fmt.Errorf("vtest: update %d change %d %s: %w", wire.Seq, i, op, err)
			}
			m.doc = doc
		}
	}
	m.seq = wire.Seq
	m.seen = true
	return nil
}

// applyOp applies one JSON Patch operation. Operations on the whole
// document are handled here since patch libraries disagree on them.
func applyOp(doc []byte, raw json.RawMessage) ([]byte, error) {
	var op struct {
		Op    string          `json:"op"`
		Path  string          `json:"path"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, err
	}
	if op.Path == "" && (op.Op == "replace" || op.Op == "add") {
		return op.Value, nil
	}

	patch, err := jsonpatch.DecodePatch([]byte("[" + string(raw) + "]"))
	if err != nil {
		return nil, err
	}
	return patch.Apply(doc)
}

// Seq returns the sequence number of the last applied update.
func (m *Mirror) Seq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// Model returns the current model as generic JSON values.
func (m *Mirror) Model() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil
	}
	var v any
	_ = json.Unmarshal(m.doc, &v)
	return v
}

// JSON returns the current model in canonical JSON form.
func (m *Mirror) JSON() string {
	v := m.Model()
	data, _ := json.Marshal(v)
	return string(data)
}

// Targets returns the target ids of every handler for event ("onclick",
// ...), in document order.
func (m *Mirror) Targets(event string) []string {
	var out []string
	walk(m.Model(), func(el map[string]any) {
		handlers, _ := el["eventHandlers"].(map[string]any)
		if spec, ok := handlers[event].(map[string]any); ok {
			if target, ok := spec["target"].(string); ok {
				out = append(out, target)
			}
		}
	})
	return out
}

// Target returns the target id of the first element with tagName that
// handles event, or "" if there is none.
func (m *Mirror) Target(tagName, event string) string {
	target := ""
	walk(m.Model(), func(el map[string]any) {
		if target != "" || el["tagName"] != tagName {
			return
		}
		handlers, _ := el["eventHandlers"].(map[string]any)
		if spec, ok := handlers[event].(map[string]any); ok {
			target, _ = spec["target"].(string)
		}
	})
	return target
}

// Text returns the concatenated text content of the model.
func (m *Mirror) Text() string {
	var sb strings.Builder
	writeText(&sb, m.Model())
	return sb.String()
}

// HTML renders the model as HTML, for assertions and failure messages.
func (m *Mirror) HTML() string {
	return RenderHTML(m.Model())
}

func walk(node any, fn func(map[string]any)) {
	el, ok := node.(map[string]any)
	if !ok {
		return
	}
	fn(el)
	children, _ := el["children"].([]any)
	for _, child := range children {
		walk(child, fn)
	}
}

func writeText(sb *strings.Builder, node any) {
	switch n := node.(type) {
	case string:
		sb.WriteString(n)
	case map[string]any:
		children, _ := n["children"].([]any)
		for _, child := range children {
			writeText(sb, child)
		}
	}
}

// RenderHTML renders a model as HTML. Render errors are returned in place of
// the HTML so they show up in assertion failures.
func RenderHTML(node any) string {
	html, err := render.NewRenderer(render.RendererConfig{}).RenderToString(node)
	if err != nil {
		return "<!-- " + err.Error() + " -->"
	}
	return html
}
