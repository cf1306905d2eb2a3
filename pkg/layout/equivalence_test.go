package layout_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/vango-dev/live/pkg/component"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/vdom"
	"github.com/vango-dev/live/pkg/vtest"
)

type todo struct {
	ID    int
	Title string
	Done  bool
}

type todoProps struct {
	Todo todo
}

var todoLabel = component.Define("TodoLabel", func(ctx context.Context, p todoProps) *vdom.VNode {
	if p.Todo.Done {
		return vdom.Strong(p.Todo.Title)
	}
	return vdom.Span(p.Todo.Title)
})

var todoApp = component.Func("Todos", func(ctx context.Context) *vdom.VNode {
	todos, setTodos := hooks.UseState(ctx, []todo{{ID: 1, Title: "one"}, {ID: 2, Title: "two"}})
	nextID := hooks.UseRef(ctx, 3)

	add := func() {
		id := nextID.Current
		nextID.Current++
		setTodos.Update(func(ts []todo) []todo {
			return append(append([]todo(nil), ts...), todo{ID: id, Title: fmt.Sprintf("item %d", id)})
		})
	}
	toggleFirst := func() {
		setTodos.Update(func(ts []todo) []todo {
			if len(ts) == 0 {
				return ts
			}
			out := append([]todo(nil), ts...)
			out[0].Done = !out[0].Done
			return out
		})
	}
	removeFirst := func() {
		setTodos.Update(func(ts []todo) []todo {
			if len(ts) == 0 {
				return ts
			}
			return append([]todo(nil), ts[1:]...)
		})
	}
	reverse := func() {
		setTodos.Update(func(ts []todo) []todo {
			out := make([]todo, len(ts))
			for i, t := range ts {
				out[len(ts)-1-i] = t
			}
			return out
		})
	}

	return vdom.Div(
		vdom.Nav(
			vdom.Button(vdom.OnClick(add), "add"),
			vdom.Button(vdom.OnClick(toggleFirst), "toggle"),
			vdom.Button(vdom.OnClick(removeFirst), "remove"),
			vdom.Button(vdom.PreventDefault(vdom.OnClick(reverse)), "reverse"),
		),
		vdom.If(len(todos) == 0, vdom.P("nothing to do")),
		vdom.Ul(vdom.Range(todos, func(_ int, t todo) *vdom.VNode {
			return vdom.Li(
				vdom.Key(t.ID),
				doneAttr(t),
				vdom.Class(classFor(t)),
				todoLabel.New(todoProps{Todo: t}),
				vdom.If(!t.Done, vdom.Small("open")),
			)
		})),
	)
})

func doneAttr(t todo) any {
	if t.Done {
		return vdom.Data("done", "yes")
	}
	return nil
}

func classFor(t todo) string {
	if t.Done {
		return "done"
	}
	return "open"
}

func TestFullTreeAndPatchesAreEquivalent(t *testing.T) {
	incremental, mi := start(t, todoApp.New(struct{}{}))
	full, mf := start(t, todoApp.New(struct{}{}),
		layout.WithConfig(layout.Config{IncrementalPatches: false}))

	const (
		add = iota
		toggle
		remove
		reverse
	)
	script := []int{add, toggle, reverse, add, toggle, remove, remove, remove, remove, add, add, reverse, toggle}

	for step, button := range script {
		fire(t, incremental, mi.Targets("onclick")[button], nil)
		fire(t, full, mf.Targets("onclick")[button], nil)

		ui := render(t, incremental, mi)
		uf := render(t, full, mf)
		if ui.IsFull() || !uf.IsFull() {
			t.Fatalf("step %d: incremental full=%v, full-tree full=%v", step, ui.IsFull(), uf.IsFull())
		}

		vtest.ExpectSameModel(t, mf, mi)
		if got, want := mi.JSON(), jsonOf(t, incremental.Tree()); got != want {
			t.Fatalf("step %d: mirror diverged from committed tree:\n%s\n%s", step, got, want)
		}
	}
	vtest.ExpectContains(t, mi, "item")
}
