package render

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-dev/live/pkg/vdom"
)

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	err := NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{
		Title:       "Counter <1>",
		Body:        encode(vdom.Button(vdom.OnClick(func() {}), "+1")),
		WSPath:      "/ws",
		Meta:        []MetaTag{{Name: "description", Content: "demo"}},
		StyleSheets: []string{"/app.css"},
		Scripts: []ScriptTag{
			{Src: "/client.js", Module: true, Defer: true},
			{Inline: `console.log("</script>")`},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	html := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>\n",
		`<html lang="en">`,
		"<title>Counter &lt;1&gt;</title>",
		`<meta name="vango-live-ws" content="/ws">`,
		`<meta name="description" content="demo">`,
		`<link rel="stylesheet" href="/app.css">`,
		`<div id="vango-root" data-ws="/ws"><button data-on-click="n1:onclick">+1</button></div>`,
		`<script>console.log("<\/script>")</script>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q:\n%s", want, html)
		}
	}

	head := html[:strings.Index(html, "</head>")]
	if !strings.Contains(head, `<script src="/client.js" type="module" defer></script>`) {
		t.Errorf("deferred script not in head:\n%s", head)
	}
	if strings.Contains(head, "console.log") {
		t.Error("inline script rendered in head")
	}
}

func TestRenderPageDefaults(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{Lang: "de", RootID: "app"}); err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	if !strings.Contains(html, `<html lang="de">`) || !strings.Contains(html, `<div id="app"></div>`) {
		t.Errorf("unexpected page:\n%s", html)
	}
	if strings.Contains(html, "<title>") || strings.Contains(html, "vango-live-ws") {
		t.Errorf("empty fields rendered:\n%s", html)
	}
}

func TestStreamingRenderer(t *testing.T) {
	rec := httptest.NewRecorder()
	s := NewStreamingRenderer(rec, RendererConfig{})
	if err := s.RenderPage(PageData{Title: "t", Body: "hello"}); err != nil {
		t.Fatal(err)
	}
	if !rec.Flushed {
		t.Error("response not flushed")
	}

	var buf bytes.Buffer
	if err := NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{Title: "t", Body: "hello"}); err != nil {
		t.Fatal(err)
	}
	if rec.Body.String() != buf.String() {
		t.Errorf("streamed page differs:\n%s\nvs\n%s", rec.Body.String(), buf.String())
	}
}

func TestStreamingRendererPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewStreamingRenderer(&buf, RendererConfig{}).RenderPage(PageData{Body: "x"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `<div id="vango-root">x</div>`) {
		t.Errorf("unexpected page:\n%s", buf.String())
	}
}

func TestEscape(t *testing.T) {
	if got := escapeHTML("<a href='x'>&</a>"); got != "&lt;a href=&#39;x&#39;&gt;&amp;&lt;/a&gt;" {
		t.Errorf("escapeHTML = %q", got)
	}
	if got := escapeAttr("a\tb\nc\r\""); got != "a&#9;b&#10;c&#13;&quot;" {
		t.Errorf("escapeAttr = %q", got)
	}
}
