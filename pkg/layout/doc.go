// Package layout renders component trees and keeps a client in sync with
// them.
//
// A Layout is created per client connection around a root component:
//
//	lay := layout.New(App.New(struct{}{}), layout.WithLogger(logger))
//	if err := lay.Open(ctx); err != nil {
//	    return err
//	}
//	defer lay.Close()
//
//	for {
//	    update, err := lay.Render(ctx) // full tree first, then patches
//	    ...
//	}
//
// Events from the client go to Deliver, which runs the handler registered
// for the event's target. State changes made by handlers mark components
// dirty; the next Render re-renders exactly the dirty components and sends
// the difference as JSON Patch operations.
//
// # Reconciliation
//
// Children are matched by key first. Children without a key are matched to
// the previous render's unkeyed children in order. A matched component keeps
// its hook state; an unmatched one is unmounted and its effect cleanups run.
// Reordering keyed children produces move operations, never unmounts.
//
// A component whose render panics, or that calls its hooks in a different
// order than on its first render, is replaced by an error placeholder
//
//	<pre class="vango-error" data-component="Name">...</pre>
//
// and the rest of the tree renders normally.
package layout
