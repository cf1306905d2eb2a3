package hooks

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestUseStatePersistsAcrossRenders(t *testing.T) {
	host := newFakeHost()
	h := NewLifeCycleHook("", "counter", host)

	var set Setter[int]
	var seen []int
	comp := func(ctx context.Context) {
		v, s := UseState(ctx, 10)
		seen = append(seen, v)
		set = s
	}

	render(t, h, comp)
	set.Set(11)
	render(t, h, comp)
	render(t, h, comp)

	if want := []int{10, 11, 11}; !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestSetterIdempotent(t *testing.T) {
	host := newFakeHost()
	h := NewLifeCycleHook("", "c", host)

	var set Setter[[]string]
	render(t, h, func(ctx context.Context) {
		_, set = UseState(ctx, []string{"a"})
	})

	set.Set([]string{"a"})
	if h.IsDirty() || host.scheduledCount() != 0 {
		t.Fatal("setting an equal value scheduled a render")
	}

	set.Set([]string{"b"})
	if !h.IsDirty() || host.scheduledCount() != 1 {
		t.Fatalf("dirty=%v scheduled=%d after change", h.IsDirty(), host.scheduledCount())
	}

	// Further changes before the render batch into the same schedule.
	set.Update(func(v []string) []string { return append(v, "c") })
	if host.scheduledCount() != 1 {
		t.Errorf("scheduled %d times, want 1", host.scheduledCount())
	}
}

func TestSetterAfterUnmount(t *testing.T) {
	host := newFakeHost()
	h := NewLifeCycleHook("", "c", host)

	var set Setter[int]
	render(t, h, func(ctx context.Context) {
		_, set = UseState(ctx, 0)
	})
	h.Unmount()
	set.Set(5)
	if host.scheduledCount() != 0 {
		t.Error("setter scheduled a render after unmount")
	}
}

func TestUseReducer(t *testing.T) {
	host := newFakeHost()
	h := NewLifeCycleHook("", "c", host)

	type action struct{ delta int }
	reducer := func(s int, a action) int { return s + a.delta }

	var state int
	var dispatch func(action)
	var first func(action)
	comp := func(ctx context.Context) {
		state, dispatch = UseReducer(ctx, reducer, 0)
		if first == nil {
			first = dispatch
		}
	}

	render(t, h, comp)
	dispatch(action{2})
	dispatch(action{3})
	render(t, h, comp)

	if state != 5 {
		t.Errorf("state = %d, want 5", state)
	}
	if reflect.ValueOf(first).Pointer() != reflect.ValueOf(dispatch).Pointer() {
		t.Error("dispatch changed between renders")
	}
}

func TestUseRefAndMemo(t *testing.T) {
	h := NewLifeCycleHook("", "c", newFakeHost())

	computes := 0
	var ref *Ref[int]
	comp := func(dep int) func(ctx context.Context) {
		return func(ctx context.Context) {
			r := UseRef(ctx, 0)
			r.Current++
			ref = r
			UseMemo(ctx, func() int { computes++; return dep * 2 }, Deps(dep))
		}
	}

	render(t, h, comp(1))
	render(t, h, comp(1))
	render(t, h, comp(2))

	if ref.Current != 3 {
		t.Errorf("ref.Current = %d, want 3", ref.Current)
	}
	if computes != 2 {
		t.Errorf("memo computed %d times, want 2", computes)
	}
}

func TestUseEffectDeps(t *testing.T) {
	tests := []struct {
		name string
		deps func(render int) []any
		want int
	}{
		{"nil runs every render", func(int) []any { return nil }, 3},
		{"empty runs once", func(int) []any { return Deps() }, 1},
		{"changed deps", func(r int) []any { return Deps(r / 2) }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLifeCycleHook("", "c", newFakeHost())
			runs := 0
			for i := 0; i < 3; i++ {
				render(t, h, func(ctx context.Context) {
					UseEffect(ctx, func() Cleanup { runs++; return nil }, tt.deps(i))
				})
			}
			if runs != tt.want {
				t.Errorf("runs = %d, want %d", runs, tt.want)
			}
		})
	}
}

func TestUseEffectCleanupOrder(t *testing.T) {
	h := NewLifeCycleHook("", "c", newFakeHost())

	var log []string
	comp := func(n int) func(ctx context.Context) {
		return func(ctx context.Context) {
			UseEffect(ctx, func() Cleanup {
				log = append(log, "run", string(rune('0'+n)))
				return func() { log = append(log, "cleanup", string(rune('0'+n))) }
			}, Deps(n))
		}
	}

	render(t, h, comp(1))
	if len(log) != 2 {
		t.Fatalf("effect did not run after commit: %v", log)
	}
	render(t, h, comp(2))
	h.Unmount()

	want := []string{"run", "1", "cleanup", "1", "run", "2", "cleanup", "2"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestUseEffectNotRunOnFailedRender(t *testing.T) {
	h := NewLifeCycleHook("", "c", newFakeHost())

	runs := 0
	render(t, h, func(ctx context.Context) {
		UseEffect(ctx, func() Cleanup { runs++; return nil }, nil)
	})
	err := tryRender(h, func(ctx context.Context) {
		UseEffect(ctx, func() Cleanup { runs++; return nil }, nil)
		UseState(ctx, 0) // extra hook
	})
	if !errors.Is(err, ErrHookMismatch) {
		t.Fatalf("err = %v, want ErrHookMismatch", err)
	}
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestHookMismatch(t *testing.T) {
	tests := []struct {
		name   string
		second func(ctx context.Context)
	}{
		{"different kind", func(ctx context.Context) { UseRef(ctx, 0) }},
		{"fewer hooks", func(ctx context.Context) {}},
		{"more hooks", func(ctx context.Context) {
			UseState(ctx, 0)
			UseState(ctx, 0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLifeCycleHook("", "c", newFakeHost())
			render(t, h, func(ctx context.Context) { UseState(ctx, 0) })

			err := tryRender(h, tt.second)
			if !errors.Is(err, ErrHookMismatch) {
				t.Errorf("err = %v, want ErrHookMismatch", err)
			}
		})
	}
}

func TestAbortedFirstRenderResetsSlots(t *testing.T) {
	h := NewLifeCycleHook("", "c", newFakeHost())

	err := tryRender(h, func(ctx context.Context) {
		UseState(ctx, 0)
		panic(errors.New("boom"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if h.SlotCount() != 0 {
		t.Fatalf("SlotCount = %d after failed first render", h.SlotCount())
	}
	render(t, h, func(ctx context.Context) { UseRef(ctx, "") })
}

func TestUseAsyncEffect(t *testing.T) {
	host := newFakeHost()
	h := NewLifeCycleHook("", "c", host)

	var mu sync.Mutex
	var log []string
	record := func(s string) {
		mu.Lock()
		log = append(log, s)
		mu.Unlock()
	}

	started := make(chan struct{}, 2)
	comp := func(dep string) func(ctx context.Context) {
		return func(ctx context.Context) {
			UseAsyncEffect(ctx, func(ctx context.Context) Cleanup {
				record("start " + dep)
				started <- struct{}{}
				<-ctx.Done()
				record("cancelled " + dep)
				return func() { record("cleanup " + dep) }
			}, Deps(dep))
		}
	}

	render(t, h, comp("a"))
	<-started
	render(t, h, comp("b"))
	<-started
	h.Unmount()

	done := make(chan struct{})
	go func() {
		host.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("async effects did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"start a", "cancelled a", "cleanup a", "start b", "cancelled b", "cleanup b"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestContext(t *testing.T) {
	host := newFakeHost()
	theme := CreateContext("light")

	root := NewLifeCycleHook("", "root", host)
	mid := host.child(root, "r")
	leaf := host.child(mid, "r/r")

	var rootSees, leafSees string
	render(t, root, func(ctx context.Context) {
		Provide(ctx, theme, "dark")
		rootSees = UseContext(ctx, theme)
	})
	render(t, mid, func(ctx context.Context) {})
	render(t, leaf, func(ctx context.Context) {
		leafSees = UseContext(ctx, theme)
	})

	if rootSees != "light" {
		t.Errorf("provider sees %q, want default", rootSees)
	}
	if leafSees != "dark" {
		t.Errorf("descendant sees %q, want dark", leafSees)
	}

	other := CreateContext(42)
	var n int
	h := host.child(nil, "x")
	render(t, h, func(ctx context.Context) { n = UseContext(ctx, other) })
	if n != 42 {
		t.Errorf("UseContext without provider = %d, want 42", n)
	}
}

func TestUseLocation(t *testing.T) {
	host := newFakeHost()
	host.conn = Connection{Location: Location{Path: "/todo", QueryString: "?x=1"}}
	h := NewLifeCycleHook("", "c", host)

	var loc Location
	render(t, h, func(ctx context.Context) { loc = UseLocation(ctx) })
	if loc.Path != "/todo" || loc.QueryString != "?x=1" {
		t.Errorf("UseLocation = %+v", loc)
	}
}
