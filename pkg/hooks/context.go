package hooks

import (
	"context"
	"reflect"
	"sync/atomic"
)

var contextIDs atomic.Uint64

// Context carries a value from a component to its descendants without
// passing it through props.
type Context[T any] struct {
	id  uint64
	def T
}

// CreateContext creates a context whose consumers see def when no ancestor
// provides a value.
func CreateContext[T any](def T) *Context[T] {
	return &Context[T]{id: contextIDs.Add(1), def: def}
}

// Default returns the value consumers see without a provider.
func (c *Context[T]) Default() T { return c.def }

// Provide makes value visible to the descendants of the calling component
// through UseContext. The calling component itself does not see it.
func Provide[T any](ctx context.Context, c *Context[T], value T) {
	h := current(ctx)
	h.useSlot(HookProvider, func() any { return c.id })
	h.provide(c.id, value)
}

// UseContext returns the value provided by the nearest ancestor for c, or
// c's default.
func UseContext[T any](ctx context.Context, c *Context[T]) T {
	h := current(ctx)
	h.useSlot(HookContext, func() any { return c.id })
	if h.host == nil {
		return c.def
	}
	for a := h.host.Ancestor(h); a != nil; a = h.host.Ancestor(a) {
		if v, ok := a.provided(c.id); ok {
			return v.(T)
		}
	}
	return c.def
}

// Location is the client's location when the connection was opened.
type Location struct {
	Path        string `json:"path"`
	QueryString string `json:"queryString,omitempty"`
}

// Connection describes the client connection a layout serves. Scope holds
// request data (headers, remote address, ...); Carrier is the underlying
// transport object, if the server exposes it.
type Connection struct {
	Location Location
	Scope    map[string]any
	Carrier  any
}

// UseConnection returns the connection of the layout rendering the
// component.
func UseConnection(ctx context.Context) Connection {
	h := current(ctx)
	if h.host == nil {
		return Connection{}
	}
	return h.host.Connection()
}

// UseLocation returns the client's location.
func UseLocation(ctx context.Context) Location {
	return UseConnection(ctx).Location
}

type debugCell struct {
	value any
	set   bool
}

// UseDebugValue logs v at debug level whenever it differs from the value
// logged by the previous render.
func UseDebugValue(ctx context.Context, v any) {
	h := current(ctx)
	cell := h.useSlot(HookDebug, func() any { return &debugCell{} }).(*debugCell)
	if cell.set && reflect.DeepEqual(cell.value, v) {
		return
	}
	cell.value = v
	cell.set = true
	h.logger().Debug("debug value", "component", h.name, "path", h.path, "value", v)
}
