package hooks

import (
	"context"
	"sync"
)

// Cleanup undoes what an effect did. It may be nil.
type Cleanup func()

// effectSlot is the state of one UseEffect or UseAsyncEffect call. The next*
// fields are written by the render that scheduled the effect and only take
// over at commit, so an aborted render leaves the committed effect intact.
// Only the render goroutine touches it.
type effectSlot struct {
	async bool

	deps   []any
	hasRun bool

	nextDeps  []any
	nextSync  func() Cleanup
	nextAsync func(context.Context) Cleanup

	cleanup Cleanup
	run     *asyncRun
}

// UseEffect runs fn after the render that called it has been committed,
// whenever deps changed since the last run. A nil deps runs it after every
// render; Deps() runs it once. The cleanup fn returns runs before the next
// invocation and when the component unmounts.
//
// fn and its cleanup run synchronously on the rendering goroutine while the
// layout is locked, so they hold up the next render and every event
// delivery until they return. Work that blocks or does I/O belongs in
// UseAsyncEffect.
//
//	hooks.UseEffect(ctx, func() hooks.Cleanup {
//	    sub := bus.Subscribe(topic)
//	    return sub.Close
//	}, hooks.Deps(topic))
func UseEffect(ctx context.Context, fn func() Cleanup, deps []any) {
	h := current(ctx)
	e := h.useSlot(HookEffect, func() any { return &effectSlot{} }).(*effectSlot)
	if e.hasRun && !depsChanged(e.deps, deps) {
		return
	}
	e.nextSync = fn
	e.nextDeps = deps
	h.schedule(e)
}

// UseAsyncEffect is UseEffect for work that blocks. fn runs in the
// background with a context that is cancelled when the effect is superseded
// by its next invocation or the component unmounts. The previous
// invocation's cleanup runs before the next one starts.
func UseAsyncEffect(ctx context.Context, fn func(context.Context) Cleanup, deps []any) {
	h := current(ctx)
	e := h.useSlot(HookAsyncEffect, func() any { return &effectSlot{async: true} }).(*effectSlot)
	if e.hasRun && !depsChanged(e.deps, deps) {
		return
	}
	e.nextAsync = fn
	e.nextDeps = deps
	h.schedule(e)
}

func (e *effectSlot) commit(h *LifeCycleHook) {
	e.deps = e.nextDeps
	e.hasRun = true
	e.nextDeps = nil

	if !e.async {
		fn := e.nextSync
		e.nextSync = nil
		if prev := e.cleanup; prev != nil {
			e.cleanup = nil
			h.safeCall("effect cleanup", prev)
		}
		h.safeCall("effect", func() { e.cleanup = fn() })
		return
	}

	fn := e.nextAsync
	e.nextAsync = nil
	if h.host == nil {
		return
	}

	prev := e.run
	if prev != nil {
		prev.retire()
	}
	run := &asyncRun{}
	task := h.host.Spawn(func(ctx context.Context) {
		if prev != nil {
			<-prev.done()
			prev.runCleanup(h)
		}
		if ctx.Err() != nil {
			run.finish(h, nil)
			return
		}
		var c Cleanup
		h.safeCall("async effect", func() { c = fn(ctx) })
		run.finish(h, c)
	})
	if task == nil {
		return
	}
	run.setTask(task)
	e.run = run
}

func (e *effectSlot) unmount(h *LifeCycleHook) {
	if !e.async {
		if c := e.cleanup; c != nil {
			e.cleanup = nil
			h.safeCall("effect cleanup", c)
		}
		return
	}
	if e.run != nil {
		e.run.unmount(h)
	}
}

// asyncRun is one invocation of an async effect. Its cleanup runs exactly
// once: by the next invocation, or at unmount once the invocation returned.
type asyncRun struct {
	mu        sync.Mutex
	task      *Task
	cleanup   Cleanup
	finished  bool
	unmounted bool
	cleaned   bool
}

func (r *asyncRun) setTask(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.task = t
}

func (r *asyncRun) done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.task.Done()
}

// retire cancels the invocation's context.
func (r *asyncRun) retire() {
	r.mu.Lock()
	t := r.task
	r.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
}

func (r *asyncRun) finish(h *LifeCycleHook, c Cleanup) {
	r.mu.Lock()
	r.cleanup = c
	r.finished = true
	unmounted := r.unmounted
	r.mu.Unlock()

	if unmounted {
		r.runCleanup(h)
	}
}

func (r *asyncRun) unmount(h *LifeCycleHook) {
	r.mu.Lock()
	r.unmounted = true
	finished := r.finished
	r.mu.Unlock()

	r.retire()
	if finished {
		r.runCleanup(h)
	}
}

func (r *asyncRun) runCleanup(h *LifeCycleHook) {
	r.mu.Lock()
	if r.cleaned || !r.finished {
		r.mu.Unlock()
		return
	}
	r.cleaned = true
	c := r.cleanup
	r.mu.Unlock()

	if c != nil {
		h.safeCall("async effect cleanup", c)
	}
}
