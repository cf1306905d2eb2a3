// Package hooks holds per-component state for the layout and the hook
// functions components call while rendering.
//
// A component's render function receives a context.Context carrying a frame
// for the component's LifeCycleHook. Hook functions resolve the frame from
// that context and claim the next slot in call order:
//
//	func Counter(ctx context.Context, _ struct{}) *vdom.VNode {
//	    count, setCount := hooks.UseState(ctx, 0)
//	    return vdom.Button(
//	        vdom.OnClick(func() { setCount.Set(count + 1) }),
//	        vdom.Textf("%d", count),
//	    )
//	}
//
// Hooks must be called unconditionally and in the same order on every
// render. Calling a hook outside a render, or in a different order than on
// the first render, panics with a coded *errors.VangoError; the layout
// recovers it and renders an error placeholder for that component only.
//
// # Effects
//
// UseEffect runs synchronously after the render is committed. UseAsyncEffect
// runs in the background with a context cancelled when the effect is
// superseded or the component unmounts.
package hooks
