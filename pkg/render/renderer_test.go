package render

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/vango-dev/live/pkg/vdom"
)

func encode(node *vdom.VNode) any {
	vdom.AssignIDs(node, vdom.NewIDGenerator())
	return vdom.Encode(node)
}

func renderString(t *testing.T, model any) string {
	t.Helper()
	html, err := NewRenderer(RendererConfig{}).RenderToString(model)
	if err != nil {
		t.Fatalf("RenderToString: %v", err)
	}
	return html
}

func TestRenderElements(t *testing.T) {
	tests := []struct {
		name string
		node *vdom.VNode
		want string
	}{
		{
			name: "nested",
			node: vdom.Div(vdom.Class("card"), vdom.P("hello")),
			want: `<div class="card"><p>hello</p></div>`,
		},
		{
			name: "void element",
			node: vdom.Div(vdom.Input(vdom.Type("text"), vdom.Value("x"))),
			want: `<div><input type="text" value="x"></div>`,
		},
		{
			name: "boolean attributes",
			node: vdom.Input(vdom.Disabled(true), vdom.Checked(false)),
			want: `<input disabled>`,
		},
		{
			name: "attributes sorted",
			node: vdom.Span(vdom.TitleAttr("t"), vdom.ID("s"), vdom.Data("x", "1")),
			want: `<span data-x="1" id="s" title="t"></span>`,
		},
		{
			name: "escaping",
			node: vdom.P(vdom.TitleAttr(`"a" & 'b'`), "<script>"),
			want: `<p title="&quot;a&quot; &amp; &#39;b&#39;">&lt;script&gt;</p>`,
		},
		{
			name: "fragment",
			node: vdom.Ul(vdom.Fragment(vdom.Li("a"), vdom.Li("b"))),
			want: `<ul><li>a</li><li>b</li></ul>`,
		},
		{
			name: "key not rendered",
			node: vdom.Li(vdom.Key("k1"), "item"),
			want: `<li>item</li>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderString(t, encode(tt.node)); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestRenderEventHandlers(t *testing.T) {
	node := vdom.Div(
		vdom.Button(vdom.OnClick(func() {}), "+1"),
		vdom.Form(vdom.PreventDefault(vdom.OnSubmit(func() {}))),
	)
	got := renderString(t, encode(node))
	want := `<div><button data-on-click="n2:onclick">+1</button>` +
		`<form data-on-submit="n3:onsubmit" data-prevent-submit></form></div>`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestRenderGenericModel(t *testing.T) {
	model := encode(vdom.Div(
		vdom.Attribute("tabindex", 2),
		vdom.Attribute("style", map[string]any{"color": "red", "margin": "0"}),
		vdom.Button(vdom.OnClick(func() {}), "go"),
	))
	typed := renderString(t, model)

	data, err := json.Marshal(model)
	if err != nil {
		t.Fatal(err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}
	if got := renderString(t, generic); got != typed {
		t.Errorf("generic %s\ntyped   %s", got, typed)
	}
	want := `<div style="color: red; margin: 0;" tabindex="2"><button data-on-click="n2:onclick">go</button></div>`
	if typed != want {
		t.Errorf("got  %s\nwant %s", typed, want)
	}
}

func TestRenderImportSource(t *testing.T) {
	node := vdom.El("chart-view", vdom.ImportSource{Source: "/js/chart.js", SourceType: "URL", Fallback: "loading"})
	got := renderString(t, encode(node))
	want := `<chart-view data-import-source="/js/chart.js" data-import-type="URL">loading</chart-view>`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestRenderText(t *testing.T) {
	if got := renderString(t, "a & b"); got != "a &amp; b" {
		t.Errorf("got %q", got)
	}
	if got := renderString(t, nil); got != "" {
		t.Errorf("nil model rendered %q", got)
	}
}

func TestRenderInvalid(t *testing.T) {
	tests := []struct {
		name  string
		model any
	}{
		{"tag name", map[string]any{"tagName": "div onload=x"}},
		{"attribute name", map[string]any{"tagName": "div", "attributes": map[string]any{`a"b`: "x"}}},
		{"value", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRenderer(RendererConfig{}).RenderToString(tt.model); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRenderPretty(t *testing.T) {
	r := NewRenderer(RendererConfig{Pretty: true})
	got, err := r.RenderToString(encode(vdom.Div(vdom.P(vdom.Span("x")), vdom.Br())))
	if err != nil {
		t.Fatal(err)
	}
	want := "<div>\n  <p>\n    <span>x</span>\n  </p>\n  <br>\n</div>\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errors.New("disk full")
	}
	w.n--
	return len(p), nil
}

func TestRenderWriteError(t *testing.T) {
	err := NewRenderer(RendererConfig{}).RenderToWriter(&failingWriter{n: 1}, encode(vdom.Div("a", "b")))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v, want the write error", err)
	}
}
