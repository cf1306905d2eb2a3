package hooks

import (
	"context"
	"sync/atomic"

	"github.com/vango-dev/live/internal/errors"
)

// Sentinels for errors.Is. Errors returned by this package carry more detail
// but match these by code.
var (
	ErrReentrantRender = errors.New(errors.CodeReentrantRender)
	ErrNoActiveRender  = errors.New(errors.CodeNoActiveRender)
	ErrHookMismatch    = errors.New(errors.CodeHookMismatch)
)

type frameKey struct{}

// frame is one entry of the hook stack. The stack is the chain of frames
// reachable through context values, so every goroutine rendering with its
// own context has its own stack.
type frame struct {
	hook   *LifeCycleHook
	parent *frame
	popped atomic.Bool
}

func frameFrom(ctx context.Context) *frame {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(frameKey{}).(*frame)
	return f
}

// Push begins a render pass for h on top of the frames already in ctx and
// returns the context the render function must be called with.
func Push(ctx context.Context, h *LifeCycleHook) (context.Context, error) {
	parent := frameFrom(ctx)
	for f := parent; f != nil; f = f.parent {
		if f.hook == h && !f.popped.Load() {
			return ctx, errors.New(errors.CodeReentrantRender).
				WithComponent(h.Name()).
				WithPath(h.Path())
		}
	}
	return context.WithValue(ctx, frameKey{}, &frame{hook: h, parent: parent}), nil
}

// Current returns the hook state of the component rendering with ctx.
func Current(ctx context.Context) (*LifeCycleHook, error) {
	f := frameFrom(ctx)
	if f == nil || f.popped.Load() {
		return nil, errors.New(errors.CodeNoActiveRender)
	}
	return f.hook, nil
}

// Pop ends the render pass begun by the Push that returned ctx. Hooks called
// with ctx afterwards fail with ErrNoActiveRender; the parent's context is
// unaffected.
func Pop(ctx context.Context) error {
	f := frameFrom(ctx)
	if f == nil || !f.popped.CompareAndSwap(false, true) {
		return errors.New(errors.CodeNoActiveRender).WithDetail("Pop called without a matching Push.")
	}
	return nil
}

// current is used by hook functions: misuse is a programming error in the
// render function and panics, which the layout isolates to the component.
func current(ctx context.Context) *LifeCycleHook {
	h, err := Current(ctx)
	if err != nil {
		panic(err)
	}
	return h
}
