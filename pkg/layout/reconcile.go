package layout

import (
	"context"
	"runtime/debug"
	"sort"

	"github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/vdom"
)

const placeholderMessage = "An error occurred while rendering this component."

// pass is one render pass. It mounts, renders and diffs components,
// collecting the patches that bring the client from the committed tree to
// the new one. Patch pointers are valid against the client model as left by
// the patches emitted before them.
//
// A pass runs with the layout lock held.
type pass struct {
	l        *Layout
	ctx      context.Context
	patches  []vdom.Patch
	rendered []*hooks.LifeCycleHook

	// touched is set once a dirty component was rendered, successfully or
	// not.
	touched bool
}

func (l *Layout) newPass(ctx context.Context) *pass {
	return &pass{l: l, ctx: ctx}
}

func (p *pass) emit(patch vdom.Patch) {
	p.patches = append(p.patches, patch)
}

// commitEffects runs the effects scheduled by the components rendered in
// this pass, in render order.
func (p *pass) commitEffects() {
	for _, h := range p.rendered {
		if !h.IsUnmounted() {
			h.CommitEffects()
		}
	}
}

// mount builds a subtree that has no committed counterpart: it assigns node
// ids and mounts and renders every component in it. depth is the number of
// components above node.
func (p *pass) mount(node *vdom.VNode, path string, depth int) *vdom.VNode {
	switch node.Kind {
	case vdom.KindText:
		return node

	case vdom.KindComponent:
		m := &mounted{
			hook: hooks.NewLifeCycleHook(path, node.Comp.Type().Name, p.l),
			node: node,
		}
		p.l.arena[path] = m
		out := p.render(m, depth+1)
		node.Children = []*vdom.VNode{p.mount(out, renderedPath(path), depth+1)}
		return node

	default:
		node.ID = p.l.ids.Next()
		segs := p.segments(node.Children, path)
		for i, child := range node.Children {
			node.Children[i] = p.mount(child, childPath(path, segs[i]), depth)
		}
		return node
	}
}

// unmount releases a committed subtree, children before their parents.
func (p *pass) unmount(node *vdom.VNode, path string) {
	if node == nil {
		return
	}
	switch node.Kind {
	case vdom.KindText:
		return

	case vdom.KindComponent:
		p.unmount(node.Rendered(), renderedPath(path))
		if m, ok := p.l.arena[path]; ok && m.node == node {
			m.hook.Unmount()
			delete(p.l.arena, path)
		}

	default:
		segs, _ := childSegments(node.Children)
		for i, child := range node.Children {
			p.unmount(child, childPath(path, segs[i]))
		}
	}
}

// render calls a component's render function under its hook frame. A
// failing render yields an error placeholder instead of the component's
// output; the failure does not leave the component.
func (p *pass) render(m *mounted, depth int) *vdom.VNode {
	h := m.hook
	h.ClearDirty()

	if depth > p.l.config.MaxRenderDepth {
		return p.placeholder(m, errors.New(errors.CodeRenderDepth).
			WithDetailf("Component nesting exceeds %d.", p.l.config.MaxRenderDepth), nil)
	}

	ctx, err := hooks.Push(p.ctx, h)
	if err != nil {
		return p.placeholder(m, err, nil)
	}
	h.BeginRender()
	out, stack, err := p.call(ctx, m)
	_ = hooks.Pop(ctx)
	if err == nil {
		err = h.EndRender()
	}
	if err != nil {
		h.AbortRender()
		return p.placeholder(m, err, stack)
	}

	p.rendered = append(p.rendered, h)
	if out == nil {
		return &vdom.VNode{Kind: vdom.KindFragment}
	}
	return out
}

func (p *pass) call(ctx context.Context, m *mounted) (out *vdom.VNode, stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.FromPanic(r, errors.CodeRenderFailed)
			stack = debug.Stack()
		}
	}()
	return m.node.Comp.Render(ctx), nil, nil
}

func (p *pass) placeholder(m *mounted, err error, stack []byte) *vdom.VNode {
	attrs := []any{
		"component", m.hook.Name(),
		"path", m.hook.Path(),
		"error", err,
	}
	if stack != nil {
		attrs = append(attrs, "stack", string(stack))
	}
	p.l.logger.Error("render failed", attrs...)

	msg := placeholderMessage
	if p.l.config.ShowErrors {
		msg = err.Error()
	}
	return vdom.Pre(
		vdom.Class("vango-error"),
		vdom.Data("component", m.hook.Name()),
		vdom.Text(msg),
	)
}

// rerender renders a mounted component again and diffs its output against
// what it rendered last. ptr is the component's pointer in the client model.
func (p *pass) rerender(m *mounted, ptr, path string, depth int) {
	out := p.render(m, depth)
	m.node.Children[0] = p.diff(m.node.Rendered(), out, ptr, renderedPath(path), depth)
}

// diff reconciles the committed node old with next and returns the node to
// commit in its place.
func (p *pass) diff(old, next *vdom.VNode, ptr, path string, depth int) *vdom.VNode {
	if !vdom.SameNode(old, next) {
		p.unmount(old, path)
		n := p.mount(next, path, depth)
		p.emit(vdom.Patch{Op: vdom.OpReplace, Path: ptr, Value: vdom.Encode(n), Kind: vdom.PatchReplaceNode})
		return n
	}

	switch next.Kind {
	case vdom.KindText:
		if old.Text != next.Text {
			p.emit(vdom.Patch{Op: vdom.OpReplace, Path: ptr, Value: next.Text, Kind: vdom.PatchSetText})
		}
		return next

	case vdom.KindComponent:
		m, ok := p.l.arena[path]
		if !ok {
			p.l.logger.Error("matched component is not mounted", "path", path)
			return p.mount(next, path, depth)
		}
		m.node = next
		out := p.render(m, depth+1)
		next.Children = []*vdom.VNode{p.diff(old.Rendered(), out, ptr, renderedPath(path), depth+1)}
		return next

	default:
		next.ID = old.ID
		p.diffAttributes(old, next, ptr)
		p.diffHandlers(old, next, ptr)
		p.diffImportSource(old, next, ptr)
		p.diffChildren(old, next, ptr, path, depth)
		return next
	}
}

func (p *pass) diffAttributes(old, next *vdom.VNode, ptr string) {
	switch {
	case len(old.Props) == 0 && len(next.Props) == 0:
		return
	case len(old.Props) == 0:
		p.emit(vdom.Patch{Op: vdom.OpAdd, Path: ptr + "/attributes", Value: vdom.EncodeAttributes(next.Props), Kind: vdom.PatchSetAttr})
		return
	case len(next.Props) == 0:
		p.emit(vdom.Patch{Op: vdom.OpRemove, Path: ptr + "/attributes", Kind: vdom.PatchRemoveAttr})
		return
	}

	for _, name := range sortedKeys(old.Props) {
		if _, ok := next.Props[name]; !ok {
			p.emit(vdom.Patch{Op: vdom.OpRemove, Path: vdom.AttrPath(ptr, name), Kind: vdom.PatchRemoveAttr})
		}
	}
	for _, name := range sortedKeys(next.Props) {
		value := next.Props[name]
		prev, ok := old.Props[name]
		switch {
		case !ok:
			p.emit(vdom.Patch{Op: vdom.OpAdd, Path: vdom.AttrPath(ptr, name), Value: value, Kind: vdom.PatchSetAttr})
		case !vdom.ValueEqual(prev, value):
			p.emit(vdom.Patch{Op: vdom.OpReplace, Path: vdom.AttrPath(ptr, name), Value: value, Kind: vdom.PatchSetAttr})
		}
	}
}

// diffHandlers patches the event handler specs of an element. Handler
// functions are never compared: the registry is rebuilt from the committed
// tree, so a target always reaches the latest closure.
func (p *pass) diffHandlers(old, next *vdom.VNode, ptr string) {
	switch {
	case len(old.Events) == 0 && len(next.Events) == 0:
		return
	case len(old.Events) == 0:
		p.emit(vdom.Patch{Op: vdom.OpAdd, Path: ptr + "/eventHandlers", Value: vdom.EncodeEvents(next), Kind: vdom.PatchAddHandler})
		return
	case len(next.Events) == 0:
		p.emit(vdom.Patch{Op: vdom.OpRemove, Path: ptr + "/eventHandlers", Kind: vdom.PatchRemoveHandler})
		return
	}

	for _, name := range old.EventNames() {
		if _, ok := next.Events[name]; !ok {
			p.emit(vdom.Patch{Op: vdom.OpRemove, Path: vdom.HandlerPath(ptr, name), Kind: vdom.PatchRemoveHandler})
		}
	}
	for _, name := range next.EventNames() {
		h := next.Events[name]
		spec := vdom.SpecFor(next.ID, name, h)
		prev, ok := old.Events[name]
		switch {
		case !ok:
			p.emit(vdom.Patch{Op: vdom.OpAdd, Path: vdom.HandlerPath(ptr, name), Value: spec, Kind: vdom.PatchAddHandler})
		case prev.PreventDefault != h.PreventDefault || prev.StopPropagation != h.StopPropagation:
			p.emit(vdom.Patch{Op: vdom.OpReplace, Path: vdom.HandlerPath(ptr, name), Value: spec, Kind: vdom.PatchUpdateHandler})
		}
	}
}

func (p *pass) diffImportSource(old, next *vdom.VNode, ptr string) {
	a, b := old.ImportSource, next.ImportSource
	switch {
	case a == nil && b == nil:
	case a == nil:
		p.emit(vdom.Patch{Op: vdom.OpAdd, Path: ptr + "/importSource", Value: b, Kind: vdom.PatchSetImportSource})
	case b == nil:
		p.emit(vdom.Patch{Op: vdom.OpRemove, Path: ptr + "/importSource", Kind: vdom.PatchSetImportSource})
	case *a != *b:
		p.emit(vdom.Patch{Op: vdom.OpReplace, Path: ptr + "/importSource", Value: b, Kind: vdom.PatchSetImportSource})
	}
}

func sortedKeys(props vdom.Props) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
