package render

import (
	"io"
	"strings"
)

// DefaultRootID is the id of the element that holds the rendered model.
const DefaultRootID = "vango-root"

// PageData contains everything needed to render a complete HTML document.
type PageData struct {
	// Body is the client model rendered inside the root element.
	Body any

	// Title is the page title.
	Title string

	// Lang is the language attribute of the html element. Defaults to "en".
	Lang string

	// Meta contains additional meta tags for the head.
	Meta []MetaTag

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// Scripts contains script tags. Deferred and async scripts go in the
	// head, the rest at the end of the body.
	Scripts []ScriptTag

	// WSPath is the path of the live endpoint. It is published as
	// <meta name="vango-live-ws"> and on the root element for the client.
	WSPath string

	// RootID is the id of the root element. Defaults to DefaultRootID.
	RootID string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name     string
	Content  string
	Property string
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string
	Defer  bool
	Async  bool
	Module bool
	Inline string
}

// RenderPage renders a complete HTML document to w.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	hw := &htmlWriter{w: w}
	r.writePageStart(hw, page)
	if err := r.writePageBody(hw, page); err != nil {
		return err
	}
	r.writePageEnd(hw, page)
	return hw.err
}

func (r *Renderer) writePageStart(w *htmlWriter, page PageData) {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	w.WriteString("<!DOCTYPE html>\n")
	w.WriteString(`<html lang="` + escapeAttr(lang) + `">` + "\n")

	w.WriteString("<head>\n")
	w.WriteString(`  <meta charset="utf-8">` + "\n")
	w.WriteString(`  <meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	if page.Title != "" {
		w.WriteString("  <title>" + escapeHTML(page.Title) + "</title>\n")
	}
	if page.WSPath != "" {
		writeMetaTag(w, MetaTag{Name: "vango-live-ws", Content: page.WSPath})
	}
	for _, meta := range page.Meta {
		writeMetaTag(w, meta)
	}
	for _, href := range page.StyleSheets {
		w.WriteString(`  <link rel="stylesheet" href="` + escapeAttr(href) + `">` + "\n")
	}
	for _, script := range page.Scripts {
		if script.Defer || script.Async {
			writeScriptTag(w, script)
		}
	}
	w.WriteString("</head>\n")
}

func (r *Renderer) writePageBody(w *htmlWriter, page PageData) error {
	id := page.RootID
	if id == "" {
		id = DefaultRootID
	}
	w.WriteString("<body>\n")
	w.WriteString(`<div id="` + escapeAttr(id) + `"`)
	if page.WSPath != "" {
		w.WriteString(` data-ws="` + escapeAttr(page.WSPath) + `"`)
	}
	w.WriteString(">")
	if err := r.renderNode(w, page.Body, 0); err != nil {
		return err
	}
	w.WriteString("</div>\n")
	return nil
}

func (r *Renderer) writePageEnd(w *htmlWriter, page PageData) {
	for _, script := range page.Scripts {
		if !script.Defer && !script.Async {
			writeScriptTag(w, script)
		}
	}
	w.WriteString("</body>\n</html>\n")
}

func writeMetaTag(w *htmlWriter, meta MetaTag) {
	w.WriteString("  <meta")
	if meta.Name != "" {
		w.WriteString(` name="` + escapeAttr(meta.Name) + `"`)
	}
	if meta.Property != "" {
		w.WriteString(` property="` + escapeAttr(meta.Property) + `"`)
	}
	w.WriteString(` content="` + escapeAttr(meta.Content) + `">` + "\n")
}

func writeScriptTag(w *htmlWriter, script ScriptTag) {
	w.WriteString("  <script")
	if script.Src != "" {
		w.WriteString(` src="` + escapeAttr(script.Src) + `"`)
	}
	if script.Module {
		w.WriteString(` type="module"`)
	}
	if script.Defer {
		w.WriteString(" defer")
	}
	if script.Async {
		w.WriteString(" async")
	}
	w.WriteString(">")
	if script.Inline != "" {
		// Inline scripts are trusted; only a closing tag needs breaking up.
		w.WriteString(strings.ReplaceAll(script.Inline, "</script", `<\/script`))
	}
	w.WriteString("</script>\n")
}
