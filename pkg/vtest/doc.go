// Package vtest provides helpers for testing layouts and sessions.
//
// A Mirror plays the client: it applies layout updates to its own copy of
// the model, exactly as a browser client would, so tests can assert on what
// the user would see:
//
//	m := vtest.NewMirror()
//	update, _ := lay.Render(ctx)
//	if err := m.Apply(update); err != nil {
//	    t.Fatal(err)
//	}
//	vtest.ExpectContains(t, m, "Count: 0")
//
// Pipe connects a server session to an in-memory client:
//
//	client, send, recv := vtest.Pipe()
//	go server.Serve(ctx, lay, send, recv)
//	update, _ := client.Next(ctx)
//	client.Fire(ctx, m.Target("button", "onclick"), nil)
package vtest
