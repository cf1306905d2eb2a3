package component

import (
	"context"
	"errors"
	"testing"

	verrors "github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/vdom"
)

type greetingProps struct {
	Name string
}

func TestDefineAndRender(t *testing.T) {
	greeting := Define("Greeting", func(ctx context.Context, p greetingProps) *vdom.VNode {
		return vdom.P(vdom.Textf("hello %s", p.Name))
	})

	n := greeting.Keyed("g1", greetingProps{Name: "ada"})
	if n.Key() != "g1" {
		t.Errorf("Key() = %q", n.Key())
	}
	if n.Type() != greeting.Type() {
		t.Error("node type differs from definition type")
	}
	if n.Props().Name != "ada" {
		t.Errorf("Props() = %+v", n.Props())
	}

	out := n.Render(context.Background())
	if out == nil || out.Tag != "p" || out.Children[0].Text != "hello ada" {
		t.Errorf("Render() = %+v", out)
	}
	if got := n.String(); got != "Greeting[g1]" {
		t.Errorf("String() = %q", got)
	}
}

func TestDefinitionsHaveDistinctTypes(t *testing.T) {
	render := func(context.Context) *vdom.VNode { return nil }
	a := Func("Same", render)
	b := Func("Same", render)
	if a.Type().ID == b.Type().ID {
		t.Error("two definitions share a type id")
	}
	if !vdom.SameNode(vdom.ComponentNode(a.New(struct{}{})), vdom.ComponentNode(a.New(struct{}{}))) {
		t.Error("instances of one definition are not the same node")
	}
	if vdom.SameNode(vdom.ComponentNode(a.New(struct{}{})), vdom.ComponentNode(b.New(struct{}{}))) {
		t.Error("instances of different definitions are the same node")
	}
}

func TestReservedParameter(t *testing.T) {
	type withKey struct {
		Key string
	}
	type withTag struct {
		ID string `key:"id"`
	}
	type withJSON struct {
		ID string `json:"key,omitempty"`
	}

	tests := []struct {
		name   string
		define func()
	}{
		{"field named Key", func() {
			Define("A", func(context.Context, withKey) *vdom.VNode { return nil })
		}},
		{"key tag", func() {
			Define("B", func(context.Context, withTag) *vdom.VNode { return nil })
		}},
		{"json name key", func() {
			Define("C", func(context.Context, *withJSON) *vdom.VNode { return nil })
		}},
		{"map with key entry", func() {
			d := Define("D", func(context.Context, map[string]any) *vdom.VNode { return nil })
			d.New(map[string]any{"key": 1})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(*ReservedParameterError)
				if !ok {
					t.Fatalf("recovered %v, want *ReservedParameterError", r)
				}
				var ve *verrors.VangoError
				if !errors.As(err, &ve) || ve.Code != verrors.CodeReservedParameter {
					t.Errorf("error does not unwrap to %s: %v", verrors.CodeReservedParameter, err)
				}
			}()
			tt.define()
		})
	}
}

func TestMapPropsWithoutKey(t *testing.T) {
	d := Define("M", func(_ context.Context, p map[string]any) *vdom.VNode {
		return vdom.Text(p["label"].(string))
	})
	n := d.New(map[string]any{"label": "ok"})
	if got := n.Render(context.Background()).Text; got != "ok" {
		t.Errorf("Render() text = %q", got)
	}
}
