package layout_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/vango-dev/live/pkg/component"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/vdom"
	"github.com/vango-dev/live/pkg/vtest"
)

type listProps struct {
	Size int
}

var benchList = component.Define("BenchList", func(ctx context.Context, p listProps) *vdom.VNode {
	offset, setOffset := hooks.UseState(ctx, 0)
	items := make([]int, p.Size)
	for i := range items {
		items[i] = (i + offset) % p.Size
	}
	return vdom.Div(
		vdom.Button(vdom.OnClick(func() { setOffset.Update(func(n int) int { return n + 1 }) }), "rotate"),
		vdom.Ul(vdom.Range(items, func(_ int, n int) *vdom.VNode {
			return vdom.Li(vdom.Key(n), vdom.Textf("item %d", n))
		})),
	)
})

func openBench(b *testing.B, root vdom.Component) (*layout.Layout, *protocol.LayoutUpdate) {
	b.Helper()
	l := layout.New(root, layout.WithLogger(discardLogger()))
	if err := l.Open(context.Background()); err != nil {
		b.Fatal(err)
	}
	u, err := l.Render(context.Background())
	if err != nil {
		b.Fatal(err)
	}
	return l, u
}

// BenchmarkFirstRender benchmarks rendering and encoding a fresh tree.
func BenchmarkFirstRender(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("items=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				l, _ := openBench(b, benchList.New(listProps{Size: size}))
				l.Close()
			}
		})
	}
}

// BenchmarkKeyedRotate benchmarks an event that moves every keyed child.
func BenchmarkKeyedRotate(b *testing.B) {
	for _, size := range []int{10, 100} {
		b.Run(fmt.Sprintf("items=%d", size), func(b *testing.B) {
			l, u := openBench(b, benchList.New(listProps{Size: size}))
			defer l.Close()
			m := vtest.NewMirror()
			if err := m.Apply(u); err != nil {
				b.Fatal(err)
			}
			ev, err := protocol.NewLayoutEvent(m.Target("button", "onclick"), nil)
			if err != nil {
				b.Fatal(err)
			}

			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := l.Deliver(ctx, ev); err != nil {
					b.Fatal(err)
				}
				if _, err := l.Render(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEncodeUpdate benchmarks the wire encoding of a full tree.
func BenchmarkEncodeUpdate(b *testing.B) {
	l, u := openBench(b, benchList.New(listProps{Size: 100}))
	defer l.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := protocol.EncodeUpdate(u); err != nil {
			b.Fatal(err)
		}
	}
}
