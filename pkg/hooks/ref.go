package hooks

import (
	"context"
	"reflect"
)

// Ref is a mutable box that survives re-renders. Changing Current does not
// schedule a render.
type Ref[T any] struct {
	Current T
}

// UseRef returns the component's ref, created with initial on the first
// render.
func UseRef[T any](ctx context.Context, initial T) *Ref[T] {
	h := current(ctx)
	return h.useSlot(HookRef, func() any {
		return &Ref[T]{Current: initial}
	}).(*Ref[T])
}

// Deps builds a dependency list. Deps() with no values is an empty, non-nil
// list: the effect or memo runs once. A nil list means every render.
func Deps(values ...any) []any {
	if values == nil {
		return []any{}
	}
	return values
}

func depsChanged(prev, next []any) bool {
	if next == nil || prev == nil {
		return true
	}
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if !reflect.DeepEqual(prev[i], next[i]) {
			return true
		}
	}
	return false
}

type memoCell[T any] struct {
	value T
	deps  []any
	valid bool
}

// UseMemo returns compute's result, recomputed only when deps change.
func UseMemo[T any](ctx context.Context, compute func() T, deps []any) T {
	return useMemo(ctx, HookMemo, compute, deps)
}

// UseCallback returns fn as it was when deps last changed, so that the
// function value is stable across renders.
func UseCallback[F any](ctx context.Context, fn F, deps []any) F {
	return useMemo(ctx, HookCallback, func() F { return fn }, deps)
}

func useMemo[T any](ctx context.Context, kind HookType, compute func() T, deps []any) T {
	h := current(ctx)
	cell := h.useSlot(kind, func() any { return &memoCell[T]{} }).(*memoCell[T])
	if !cell.valid || depsChanged(cell.deps, deps) {
		cell.value = compute()
		cell.deps = deps
		cell.valid = true
	}
	return cell.value
}
