package hooks

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/live/internal/errors"
)

// HookType identifies the type of hook call for order validation.
type HookType uint8

const (
	HookState HookType = iota + 1
	HookReducer
	HookRef
	HookMemo
	HookCallback
	HookEffect
	HookAsyncEffect
	HookProvider
	HookContext
	HookDebug
)

// String returns a human-readable name for the hook type.
func (t HookType) String() string {
	switch t {
	case HookState:
		return "State"
	case HookReducer:
		return "Reducer"
	case HookRef:
		return "Ref"
	case HookMemo:
		return "Memo"
	case HookCallback:
		return "Callback"
	case HookEffect:
		return "Effect"
	case HookAsyncEffect:
		return "AsyncEffect"
	case HookProvider:
		return "Provider"
	case HookContext:
		return "Context"
	case HookDebug:
		return "DebugValue"
	default:
		return "Unknown"
	}
}

// Host is what a LifeCycleHook needs from the layout that owns it.
type Host interface {
	// ScheduleRender queues h for the next render pass.
	ScheduleRender(h *LifeCycleHook)

	// Ancestor returns the nearest mounted component above h, or nil.
	Ancestor(h *LifeCycleHook) *LifeCycleHook

	// Spawn runs fn in the background with a context cancelled when the
	// returned task is cancelled or the host shuts down. It returns nil once
	// the host no longer accepts work.
	Spawn(fn func(ctx context.Context)) *Task

	// Connection returns the metadata of the client connection.
	Connection() Connection

	// Logger returns the host's logger.
	Logger() *slog.Logger
}

// Task is a background activity started through Host.Spawn.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask wraps a cancel function; the returned task is done once Finish
// has been called. Hosts use it to implement Spawn.
func NewTask(cancel context.CancelFunc) *Task {
	return &Task{cancel: cancel, done: make(chan struct{})}
}

// Cancel cancels the task's context.
func (t *Task) Cancel() { t.cancel() }

// Finish marks the task as returned.
func (t *Task) Finish() { close(t.done) }

// Done is closed once the task's function has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

type slot struct {
	kind  HookType
	value any
}

// LifeCycleHook holds the state of one mounted component instance across
// renders: its hook slots in call order, the effects scheduled by the
// current render, the context values it provides, and its dirty flag.
//
// Slots are only created and read by the goroutine rendering the component.
// Setters may run on any goroutine.
type LifeCycleHook struct {
	path string
	name string
	host Host

	mu        sync.Mutex
	slots     []slot
	cursor    int
	rendered  bool
	unmounted bool
	scheduled []*effectSlot
	providers map[uint64]any
	pending   map[uint64]any

	dirty atomic.Bool
}

// NewLifeCycleHook creates the state for a component mounted at path.
func NewLifeCycleHook(path, name string, host Host) *LifeCycleHook {
	return &LifeCycleHook{path: path, name: name, host: host}
}

// Path returns the tree position the component is mounted at.
func (h *LifeCycleHook) Path() string { return h.path }

// Name returns the component's name.
func (h *LifeCycleHook) Name() string { return h.name }

// BeginRender resets the slot cursor for a new render pass.
func (h *LifeCycleHook) BeginRender() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = 0
	h.scheduled = nil
	h.pending = nil
}

// EndRender validates the hook count against the first render.
func (h *LifeCycleHook) EndRender() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rendered && h.cursor != len(h.slots) {
		return errors.New(errors.CodeHookMismatch).
			WithDetailf("Expected %d hooks, got %d.", len(h.slots), h.cursor).
			WithComponent(h.name).
			WithPath(h.path)
	}
	h.rendered = true
	h.providers = h.pending
	h.pending = nil
	return nil
}

// AbortRender discards what a failed render pass scheduled. The slots of a
// component that never rendered successfully are dropped so that the next
// attempt starts from scratch.
func (h *LifeCycleHook) AbortRender() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduled = nil
	h.pending = nil
	if !h.rendered {
		h.slots = nil
	}
}

// useSlot returns the value of the next slot, creating it with init on the
// first render. A kind mismatch or an extra hook panics with a hook mismatch
// error.
func (h *LifeCycleHook) useSlot(kind HookType, init func() any) any {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.cursor
	h.cursor++

	if idx < len(h.slots) {
		if s := h.slots[idx]; s.kind != kind {
			panic(errors.New(errors.CodeHookMismatch).
				WithDetailf("Hook %d was %s on the first render, got %s.", idx, s.kind, kind).
				WithComponent(h.name).
				WithPath(h.path))
		}
		return h.slots[idx].value
	}
	if h.rendered {
		panic(errors.New(errors.CodeHookMismatch).
			WithDetailf("Extra %s hook at index %d; the first render called %d hooks.", kind, idx, len(h.slots)).
			WithComponent(h.name).
			WithPath(h.path))
	}

	v := init()
	h.slots = append(h.slots, slot{kind: kind, value: v})
	return v
}

func (h *LifeCycleHook) schedule(e *effectSlot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduled = append(h.scheduled, e)
}

// MarkDirty flags the component for re-render and notifies the host once.
func (h *LifeCycleHook) MarkDirty() {
	if h.IsUnmounted() {
		return
	}
	if h.dirty.CompareAndSwap(false, true) && h.host != nil {
		h.host.ScheduleRender(h)
	}
}

// IsDirty reports whether the component needs to re-render.
func (h *LifeCycleHook) IsDirty() bool { return h.dirty.Load() }

// ClearDirty resets the dirty flag; the layout calls it before rendering.
func (h *LifeCycleHook) ClearDirty() { h.dirty.Store(false) }

// IsUnmounted reports whether Unmount has been called.
func (h *LifeCycleHook) IsUnmounted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unmounted
}

// SlotCount returns the number of hooks the component calls per render.
func (h *LifeCycleHook) SlotCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.slots)
}

// CommitEffects runs the effects the last render scheduled: synchronous
// effects inline, asynchronous ones as background tasks. Each effect's
// previous cleanup runs before its next invocation.
func (h *LifeCycleHook) CommitEffects() {
	h.mu.Lock()
	effects := h.scheduled
	h.scheduled = nil
	unmounted := h.unmounted
	h.mu.Unlock()

	if unmounted {
		return
	}
	for _, e := range effects {
		e.commit(h)
	}
}

// Unmount runs every effect's last cleanup and cancels running async
// effects. Setters become no-ops.
func (h *LifeCycleHook) Unmount() {
	h.mu.Lock()
	if h.unmounted {
		h.mu.Unlock()
		return
	}
	h.unmounted = true
	h.scheduled = nil
	slots := append([]slot(nil), h.slots...)
	h.mu.Unlock()

	for i := len(slots) - 1; i >= 0; i-- {
		if e, ok := slots[i].value.(*effectSlot); ok {
			e.unmount(h)
		}
	}
}

// provide records a context value visible to descendants once the current
// render completes.
func (h *LifeCycleHook) provide(id uint64, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		h.pending = make(map[uint64]any)
	}
	h.pending[id] = value
}

// provided returns the context value h provided for id in its last
// successful render, if any.
func (h *LifeCycleHook) provided(id uint64) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.providers[id]
	return v, ok
}

func (h *LifeCycleHook) logger() *slog.Logger {
	if h.host == nil {
		return slog.Default()
	}
	return h.host.Logger()
}

// safeCall runs fn, logging a panic instead of propagating it.
func (h *LifeCycleHook) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger().Error(what+" panic",
				"panic", r,
				"component", h.name,
				"path", h.path,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
