// Package render renders client models to HTML.
//
// A layout keeps its rendered tree as a client model: the same JSON document
// the browser receives in a full update and patches afterwards. This package
// turns such a model into HTML, for the first page load before the live
// connection is up and for test assertions.
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(layout.Tree())
//
// Models decoded from JSON (map[string]any) render the same as typed ones.
//
// # Full Page Rendering
//
//	err := renderer.RenderPage(w, render.PageData{
//	    Title:  "Counter",
//	    Body:   layout.Tree(),
//	    WSPath: "/ws",
//	})
//
// StreamingRenderer does the same against an http.ResponseWriter and
// flushes the head before rendering the body.
//
// # Event Handlers
//
// Handlers are not executable in HTML. Each renders as a data attribute
// holding its target id, which the client sends back in event messages:
//
//	<button data-on-click="n4:onclick">+1</button>
//
// # Security
//
// Text and attribute values are escaped. Tag and attribute names that would
// need escaping are rejected. The dangerouslySetInnerHTML attribute inserts
// its value unescaped and must only carry trusted content.
package render
