package layout

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/vdom"
)

// ErrClosed is returned by Render and Deliver once the layout is closed.
var ErrClosed = errors.New(errors.CodeLayoutClosed)

// mounted is a component instance in the arena.
type mounted struct {
	hook *hooks.LifeCycleHook
	node *vdom.VNode
}

// registered is an entry of the handler registry.
type registered struct {
	event string
	value any
}

// Layout renders a component tree for one client and keeps it in sync: it
// owns the hook state of every mounted component, turns state changes into
// patches, and dispatches client events to handlers.
//
// Render and Deliver may be called concurrently, typically from the two
// loops of a session. Everything that touches the tree happens under one
// lock, so the setters called by one synchronous handler are reflected by a
// single render.
type Layout struct {
	root   vdom.Component
	logger *slog.Logger
	conn   hooks.Connection
	config Config

	// mu guards the tree, the arena and the registry. Sync handlers and
	// render passes hold it.
	mu       sync.Mutex
	tree     *vdom.VNode
	arena    map[string]*mounted
	handlers map[string]registered
	ids      *vdom.IDGenerator
	seq      uint64
	took     time.Duration
	opened   bool
	closed   bool

	dirtyMu sync.Mutex
	dirty   map[string]*hooks.LifeCycleHook
	wake    chan struct{}
	done    chan struct{}

	tasksMu    sync.Mutex
	taskCtx    context.Context
	taskCancel context.CancelFunc
	tasks      sync.WaitGroup
	asyncSlots chan struct{}
}

var _ hooks.Host = (*Layout)(nil)

// New creates a layout for root. Call Open before rendering.
func New(root vdom.Component, opts ...Option) *Layout {
	l := &Layout{
		root:     root,
		logger:   slog.Default(),
		config:   DefaultConfig(),
		arena:    make(map[string]*mounted),
		handlers: make(map[string]registered),
		ids:      vdom.NewIDGenerator(),
		dirty:    make(map[string]*hooks.LifeCycleHook),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.asyncSlots = make(chan struct{}, l.config.AsyncHandlerLimit)
	return l
}

// Open starts the layout. Background tasks (async effects and handlers) run
// with contexts derived from ctx and are cancelled by Close or when ctx ends.
func (l *Layout) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.opened {
		return nil
	}
	l.opened = true

	l.tasksMu.Lock()
	l.taskCtx, l.taskCancel = context.WithCancel(ctx)
	l.tasksMu.Unlock()
	return nil
}

// Render returns the next update for the client. The first call renders the
// whole tree. Later calls block until a component is marked dirty, then
// re-render the dirty components and return the resulting patches (or the
// full tree when incremental patches are disabled).
func (l *Layout) Render(ctx context.Context) (*protocol.LayoutUpdate, error) {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return nil, ErrClosed
		}
		if !l.opened {
			l.mu.Unlock()
			return nil, errors.New(errors.CodeLayoutClosed).WithDetail("Render called before Open.")
		}
		if l.tree == nil {
			update := l.renderInitial(ctx)
			l.mu.Unlock()
			return update, nil
		}
		if dirty := l.takeDirty(); len(dirty) > 0 {
			update := l.renderDirty(ctx, dirty)
			l.mu.Unlock()
			if update != nil {
				return update, nil
			}
			continue
		}
		l.mu.Unlock()

		select {
		case <-l.wake:
		case <-l.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Layout) renderInitial(ctx context.Context) *protocol.LayoutUpdate {
	start := time.Now()
	p := l.newPass(ctx)
	l.tree = p.mount(vdom.ComponentNode(l.root), "", 0)
	l.commit(p)
	l.took = time.Since(start)

	l.logger.Debug("initial render",
		"seq", l.seq,
		"components", len(l.arena),
		"duration", l.took)
	return protocol.NewFullUpdate(l.seq, vdom.Encode(l.tree))
}

// renderDirty re-renders the dirty components, ancestors first. It returns
// nil when nothing visible changed. A component whose render fails still
// counts: its error placeholder is part of the update.
func (l *Layout) renderDirty(ctx context.Context, dirty []*hooks.LifeCycleHook) *protocol.LayoutUpdate {
	start := time.Now()
	p := l.newPass(ctx)

	for _, h := range dirty {
		m, ok := l.arena[h.Path()]
		if !ok || m.hook != h || !h.IsDirty() {
			continue
		}
		node, ptr, ok := l.locate(h.Path())
		if !ok || node != m.node {
			l.logger.Error("dirty component not found in tree", "path", h.Path(), "component", h.Name())
			continue
		}
		p.rerender(m, ptr, h.Path(), componentDepth(h.Path()))
		p.touched = true
	}

	if !p.touched {
		return nil
	}
	// Handlers are re-registered even when nothing changed on the wire: the
	// new closures see the state of this render.
	l.registerHandlers()
	if len(p.patches) == 0 {
		p.commitEffects()
		return nil
	}
	l.seq++
	p.commitEffects()
	l.took = time.Since(start)

	l.logger.Debug("render",
		"seq", l.seq,
		"components", len(p.rendered),
		"changes", len(p.patches),
		"duration", l.took)
	if !l.config.IncrementalPatches {
		return protocol.NewFullUpdate(l.seq, vdom.Encode(l.tree))
	}
	return protocol.NewPatchUpdate(l.seq, p.patches)
}

// commit publishes the result of a pass: it rebuilds the handler registry,
// advances the sequence number and runs the effects the pass scheduled.
func (l *Layout) commit(p *pass) {
	l.registerHandlers()
	l.seq++
	p.commitEffects()
}

func (l *Layout) registerHandlers() {
	handlers := make(map[string]registered, len(l.handlers))
	collectHandlers(l.tree, handlers)
	l.handlers = handlers
}

func collectHandlers(node *vdom.VNode, into map[string]registered) {
	if node == nil {
		return
	}
	for name, h := range node.Events {
		into[vdom.TargetID(node.ID, name)] = registered{event: name, value: h.Handler}
	}
	for _, child := range node.Children {
		collectHandlers(child, into)
	}
}

func (l *Layout) takeDirty() []*hooks.LifeCycleHook {
	l.dirtyMu.Lock()
	defer l.dirtyMu.Unlock()
	if len(l.dirty) == 0 {
		return nil
	}
	out := make([]*hooks.LifeCycleHook, 0, len(l.dirty))
	for _, h := range l.dirty {
		out = append(out, h)
	}
	l.dirty = make(map[string]*hooks.LifeCycleHook)

	sort.Slice(out, func(i, j int) bool {
		di, dj := pathDepth(out[i].Path()), pathDepth(out[j].Path())
		if di != dj {
			return di < dj
		}
		return out[i].Path() < out[j].Path()
	})
	return out
}

// Deliver dispatches an event to the handler registered for its target.
// Events for unknown targets are logged and ignored. Synchronous handlers
// run before Deliver returns; asynchronous ones are started in the
// background.
func (l *Layout) Deliver(ctx context.Context, ev *protocol.LayoutEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	reg, ok := l.handlers[ev.Target]
	if !ok {
		l.logger.Debug("event for unknown target", "target", ev.Target)
		return nil
	}
	h, ok := wrapHandler(reg.value)
	if !ok {
		l.logger.Warn("unsupported handler type",
			"target", ev.Target,
			"type", fmt.Sprintf("%T", reg.value))
		return nil
	}

	e := newEvent(ev.Target, reg.event, ev.Data)
	if h.async != nil {
		l.startAsync(h.async, e)
		return nil
	}
	l.safeExecute(h.sync, e)
	return nil
}

// safeExecute runs a sync handler with panic recovery.
func (l *Layout) safeExecute(fn func(Event) error, e Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("handler panic",
				"panic", r,
				"target", e.Target,
				"event", e.Name,
				"stack", string(debug.Stack()))
		}
	}()
	if err := fn(e); err != nil {
		l.logger.Warn("handler failed",
			"target", e.Target,
			"event", e.Name,
			"error", errors.FromError(err, errors.CodeHandlerFailed))
	}
}

func (l *Layout) startAsync(fn func(context.Context, Event) error, e Event) {
	select {
	case l.asyncSlots <- struct{}{}:
	default:
		l.logger.Warn("async handler limit reached, dropping event",
			"target", e.Target,
			"limit", l.config.AsyncHandlerLimit)
		return
	}
	task := l.Spawn(func(ctx context.Context) {
		defer func() { <-l.asyncSlots }()
		l.safeExecute(func(e Event) error { return fn(ctx, e) }, e)
	})
	if task == nil {
		<-l.asyncSlots
	}
}

// Close unmounts every component, running effect cleanups, and cancels
// background tasks. It waits at most Config.EffectShutdownTimeout for them
// to return.
func (l *Layout) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	if l.tree != nil {
		l.newPass(context.Background()).unmount(l.tree, "")
	}
	l.handlers = make(map[string]registered)
	l.mu.Unlock()

	l.tasksMu.Lock()
	cancel := l.taskCancel
	l.taskCancel = nil
	l.tasksMu.Unlock()
	if cancel != nil {
		cancel()
	}

	waited := make(chan struct{})
	go func() {
		l.tasks.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(l.config.EffectShutdownTimeout):
		l.logger.Warn("background tasks still running after close",
			"timeout", l.config.EffectShutdownTimeout)
	}
	return nil
}

// Seq returns the sequence number of the last update.
func (l *Layout) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// RenderDuration returns how long the last committed render pass took.
func (l *Layout) RenderDuration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.took
}

// Tree returns the client model of the committed tree, or nil before the
// first render.
func (l *Layout) Tree() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tree == nil {
		return nil
	}
	return vdom.Encode(l.tree)
}

// ScheduleRender implements hooks.Host.
func (l *Layout) ScheduleRender(h *hooks.LifeCycleHook) {
	l.dirtyMu.Lock()
	l.dirty[h.Path()] = h
	l.dirtyMu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Ancestor implements hooks.Host. It is only called while rendering, with
// the layout lock held.
func (l *Layout) Ancestor(h *hooks.LifeCycleHook) *hooks.LifeCycleHook {
	path := h.Path()
	for path != "" {
		path = parentPath(path)
		if m, ok := l.arena[path]; ok {
			return m.hook
		}
	}
	return nil
}

// Spawn implements hooks.Host.
func (l *Layout) Spawn(fn func(ctx context.Context)) *hooks.Task {
	l.tasksMu.Lock()
	defer l.tasksMu.Unlock()
	if l.taskCancel == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(l.taskCtx)
	t := hooks.NewTask(cancel)
	l.tasks.Add(1)
	go func() {
		defer l.tasks.Done()
		defer t.Finish()
		defer cancel()
		fn(ctx)
	}()
	return t
}

// Connection implements hooks.Host.
func (l *Layout) Connection() hooks.Connection { return l.conn }

// Logger implements hooks.Host.
func (l *Layout) Logger() *slog.Logger { return l.logger }
