package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vango-dev/live/pkg/component"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/vdom"
)

// demoProps configure the demo application.
type demoProps struct {
	// Todos is the number of items the todo list starts with.
	Todos int

	// Tick is the uptime refresh interval. Zero disables the clock.
	Tick time.Duration
}

// demoApp is the root component served by "vango-live serve".
var demoApp = component.Define("App", func(ctx context.Context, p demoProps) *vdom.VNode {
	loc := hooks.UseLocation(ctx)
	return vdom.Main(
		vdom.Class("app"),
		vdom.H1("vango-live"),
		vdom.P(vdom.Class("location"), vdom.Textf("Connected at %s", loc.Path)),
		vdom.If(p.Tick > 0, vdom.ComponentNode(uptime.New(uptimeProps{Tick: p.Tick}))),
		counter.New(struct{}{}),
		todoList.New(todoProps{Seed: p.Todos}),
	)
})

var counter = component.Func("Counter", func(ctx context.Context) *vdom.VNode {
	count, setCount := hooks.UseState(ctx, 0)
	return vdom.Section(
		vdom.Class("counter"),
		vdom.Button(vdom.OnClick(func() { setCount.Update(func(n int) int { return n - 1 }) }), "-1"),
		vdom.Span(vdom.Class("count"), vdom.Textf("Count: %d", count)),
		vdom.Button(vdom.OnClick(func() { setCount.Update(func(n int) int { return n + 1 }) }), "+1"),
	)
})

type uptimeProps struct {
	Tick time.Duration
}

var uptime = component.Define("Uptime", func(ctx context.Context, p uptimeProps) *vdom.VNode {
	seconds, setSeconds := hooks.UseState(ctx, 0)
	hooks.UseAsyncEffect(ctx, func(ctx context.Context) hooks.Cleanup {
		ticker := time.NewTicker(p.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				setSeconds.Update(func(n int) int { return n + 1 })
			}
		}
	}, hooks.Deps(p.Tick))
	return vdom.P(vdom.Class("uptime"), vdom.Textf("Up for %d ticks", seconds))
})

type todo struct {
	ID    int
	Title string
	Done  bool
}

type todoProps struct {
	Seed int
}

func seedTodos(n int) []todo {
	items := make([]todo, n)
	for i := range items {
		items[i] = todo{ID: i + 1, Title: fmt.Sprintf("Item %d", i+1)}
	}
	return items
}

var todoList = component.Define("TodoList", func(ctx context.Context, p todoProps) *vdom.VNode {
	items, setItems := hooks.UseStateFunc(ctx, func() []todo { return seedTodos(p.Seed) })
	draft, setDraft := hooks.UseState(ctx, "")
	nextID := hooks.UseRef(ctx, p.Seed+1)

	add := func(layout.FormData) {
		title := strings.TrimSpace(draft)
		if title == "" {
			return
		}
		id := nextID.Current
		nextID.Current++
		setItems.Update(func(prev []todo) []todo {
			next := make([]todo, 0, len(prev)+1)
			next = append(next, prev...)
			return append(next, todo{ID: id, Title: title})
		})
		setDraft.Set("")
	}
	toggle := func(id int) func() {
		return func() {
			setItems.Update(func(prev []todo) []todo {
				next := make([]todo, len(prev))
				copy(next, prev)
				for i := range next {
					if next[i].ID == id {
						next[i].Done = !next[i].Done
					}
				}
				return next
			})
		}
	}
	remove := func(id int) func() {
		return func() {
			setItems.Update(func(prev []todo) []todo {
				next := make([]todo, 0, len(prev))
				for _, t := range prev {
					if t.ID != id {
						next = append(next, t)
					}
				}
				return next
			})
		}
	}

	done := 0
	for _, t := range items {
		if t.Done {
			done++
		}
	}

	return vdom.Section(
		vdom.Class("todos"),
		vdom.Form(
			vdom.PreventDefault(vdom.OnSubmit(add)),
			vdom.Input(
				vdom.Type("text"),
				vdom.Name("title"),
				vdom.Placeholder("What needs doing?"),
				vdom.Value(draft),
				vdom.OnInput(func(v string) { setDraft.Set(v) }),
			),
			vdom.Button(vdom.Type("submit"), "Add"),
		),
		vdom.Ul(vdom.Range(items, func(_ int, t todo) *vdom.VNode {
			return vdom.Li(
				vdom.Key(t.ID),
				vdom.Input(vdom.Type("checkbox"), vdom.Checked(t.Done), vdom.OnChange(toggle(t.ID))),
				vdom.Span(t.Title),
				vdom.Button(vdom.OnClick(remove(t.ID)), "×"),
			)
		})),
		vdom.P(vdom.Class("summary"), vdom.Textf("%d of %d done", done, len(items))),
	)
})
