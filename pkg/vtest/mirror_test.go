package vtest

import (
	"testing"

	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/vdom"
)

func TestMirrorAppliesPatches(t *testing.T) {
	m := NewMirror()
	root := vdom.Encode(vdom.Ul(
		vdom.Li(vdom.Key("a"), "A"),
		vdom.Li(vdom.Key("b"), "B"),
		vdom.Li(vdom.Key("c"), "C"),
	))
	if err := m.Apply(protocol.NewFullUpdate(1, root)); err != nil {
		t.Fatal(err)
	}

	err := m.Apply(protocol.NewPatchUpdate(2, []vdom.Patch{
		{Op: vdom.OpMove, From: "/children/2", Path: "/children/0", Kind: vdom.PatchMoveNode},
		{Op: vdom.OpAdd, Path: "/attributes", Value: map[string]any{"class": "list"}, Kind: vdom.PatchSetAttr},
		{Op: vdom.OpReplace, Path: "/children/1/children/0", Value: "A!", Kind: vdom.PatchSetText},
	}))
	if err != nil {
		t.Fatal(err)
	}

	if got, want := m.Text(), "CA!B"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	ExpectContains(t, m, `<ul class="list">`)
}

func TestMirrorRejectsOutOfOrder(t *testing.T) {
	m := NewMirror()
	if err := m.Apply(protocol.NewFullUpdate(2, vdom.Encode(vdom.Div()))); err != nil {
		t.Fatal(err)
	}
	if err := m.Apply(protocol.NewFullUpdate(2, vdom.Encode(vdom.Div()))); err == nil {
		t.Error("duplicate sequence number accepted")
	}
}

func TestMirrorReplaceRoot(t *testing.T) {
	m := NewMirror()
	if err := m.Apply(protocol.NewFullUpdate(1, vdom.Encode(vdom.Div()))); err != nil {
		t.Fatal(err)
	}
	err := m.Apply(protocol.NewPatchUpdate(2, []vdom.Patch{
		{Op: vdom.OpReplace, Path: "", Value: "plain", Kind: vdom.PatchReplaceNode},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if m.Text() != "plain" {
		t.Errorf("Text() = %q", m.Text())
	}
}

func TestRenderHTML(t *testing.T) {
	model := vdom.Encode(vdom.Div(vdom.Class("x"), vdom.Input(vdom.Disabled(true)), "a<b"))
	got := RenderHTML(roundTrip(t, model))
	want := `<div class="x"><input disabled>a&lt;b</div>`
	if got != want {
		t.Errorf("RenderHTML = %s, want %s", got, want)
	}
}

func roundTrip(t *testing.T, model any) any {
	t.Helper()
	m := NewMirror()
	if err := m.Apply(protocol.NewFullUpdate(1, model)); err != nil {
		t.Fatal(err)
	}
	return m.Model()
}
