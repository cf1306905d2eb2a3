package hooks

import (
	"context"
	"reflect"
	"sync"
)

type stateCell[T any] struct {
	mu    sync.Mutex
	value T
}

func (c *stateCell[T]) get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Setter updates a state slot. Setters are safe to call from any goroutine
// and stay valid for the lifetime of the component; calling one after the
// component unmounted has no effect.
type Setter[T any] struct {
	hook *LifeCycleHook
	cell *stateCell[T]
}

// Set replaces the state. Setting a value deeply equal to the current one
// does not schedule a render.
func (s Setter[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update computes the new state from the current one.
func (s Setter[T]) Update(fn func(T) T) {
	if s.cell == nil {
		return
	}
	s.cell.mu.Lock()
	next := fn(s.cell.value)
	if reflect.DeepEqual(next, s.cell.value) {
		s.cell.mu.Unlock()
		return
	}
	s.cell.value = next
	s.cell.mu.Unlock()

	s.hook.MarkDirty()
}

// UseState returns the component's state and a setter for it. The initial
// value is only used on the first render.
//
//	count, setCount := hooks.UseState(ctx, 0)
//	vdom.Button(vdom.OnClick(func() { setCount.Set(count + 1) }))
func UseState[T any](ctx context.Context, initial T) (T, Setter[T]) {
	return useState(ctx, HookState, func() T { return initial })
}

// UseStateFunc is UseState with a lazily computed initial value.
func UseStateFunc[T any](ctx context.Context, initial func() T) (T, Setter[T]) {
	return useState(ctx, HookState, initial)
}

func useState[T any](ctx context.Context, kind HookType, initial func() T) (T, Setter[T]) {
	h := current(ctx)
	cell := h.useSlot(kind, func() any {
		return &stateCell[T]{value: initial()}
	}).(*stateCell[T])
	return cell.get(), Setter[T]{hook: h, cell: cell}
}

type reducerCell[S, A any] struct {
	mu       sync.Mutex
	reducer  func(S, A) S
	setter   Setter[S]
	dispatch func(A)
}

// UseReducer returns state managed by reducer and a dispatch function. The
// dispatch function is the same value on every render and always applies the
// reducer passed to the latest render.
func UseReducer[S, A any](ctx context.Context, reducer func(S, A) S, initial S) (S, func(A)) {
	state, set := useState(ctx, HookReducer, func() S { return initial })

	h := current(ctx)
	cell := h.useSlot(HookReducer, func() any {
		c := &reducerCell[S, A]{setter: set}
		c.dispatch = func(action A) {
			c.mu.Lock()
			r := c.reducer
			c.mu.Unlock()
			c.setter.Update(func(s S) S { return r(s, action) })
		}
		return c
	}).(*reducerCell[S, A])

	cell.mu.Lock()
	cell.reducer = reducer
	cell.mu.Unlock()

	return state, cell.dispatch
}
