// Package server drives a layout over a client connection.
//
// A session runs two loops that share one layout:
//
//   - the outgoing loop waits for Layout.Render and sends each update
//   - the incoming loop receives client events and delivers them
//
// Both loops run in one errgroup. The first failure cancels the other loop,
// and the layout is closed when both have returned, so effect cleanups run
// exactly once per session.
//
// The transport is abstracted as a pair of functions (SendFunc, RecvFunc).
// WebSocketTransport adapts a gorilla/websocket connection, and Handler wires
// it into net/http:
//
//	h := &server.Handler{
//	    Root: func(c hooks.Connection) vdom.Component { return app.New(nil) },
//	}
//	http.Handle("/ws", h)
//
// Observers receive session, render and event notifications; see the
// middleware package for Prometheus and OpenTelemetry implementations.
package server
