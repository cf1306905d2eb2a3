package server_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/live/pkg/component"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/server"
	"github.com/vango-dev/live/pkg/vdom"
	"github.com/vango-dev/live/pkg/vtest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var counter = component.Func("Counter", func(ctx context.Context) *vdom.VNode {
	count, setCount := hooks.UseState(ctx, 0)
	return vdom.Div(
		vdom.Button(
			vdom.OnClick(func() {
				setCount.Update(func(n int) int { return n + 1 })
			}),
			"+1",
		),
		vdom.Span(vdom.Textf("Count: %d", count)),
	)
})

// harness runs a session over an in-memory pipe.
type harness struct {
	t       *testing.T
	client  *vtest.Client
	mirror  *vtest.Mirror
	session *server.Session
	cancel  context.CancelFunc
	result  chan error
}

func serve(t *testing.T, root vdom.Component, opts ...server.Option) *harness {
	t.Helper()
	client, send, recv := vtest.Pipe()
	l := layout.New(root, layout.WithLogger(discardLogger()))
	opts = append([]server.Option{server.WithLogger(discardLogger())}, opts...)
	s := server.NewSession(l, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		t:       t,
		client:  client,
		mirror:  vtest.NewMirror(),
		session: s,
		cancel:  cancel,
		result:  make(chan error, 1),
	}
	go func() { h.result <- s.Serve(ctx, send, recv) }()
	t.Cleanup(func() {
		cancel()
		client.Close()
		<-s.Done()
	})

	if u := h.next(); !u.IsFull() {
		t.Fatal("first update is not a full tree")
	}
	return h
}

// next waits for an update and applies it to the mirror.
func (h *harness) next() *protocol.LayoutUpdate {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	u, err := h.client.Next(ctx)
	if err != nil {
		h.t.Fatalf("Next: %v", err)
	}
	if err := h.mirror.Apply(u); err != nil {
		h.t.Fatalf("apply update %d: %v", u.Seq, err)
	}
	return u
}

func (h *harness) click(tag string) {
	h.t.Helper()
	target := h.mirror.Target(tag, "onclick")
	if target == "" {
		h.t.Fatalf("no click target on <%s>", tag)
	}
	if err := h.client.Fire(context.Background(), target, nil); err != nil {
		h.t.Fatalf("Fire: %v", err)
	}
}

// wait returns Serve's result.
func (h *harness) wait() error {
	h.t.Helper()
	select {
	case err := <-h.result:
		return err
	case <-time.After(5 * time.Second):
		h.t.Fatal("Serve did not return")
		return nil
	}
}

func TestServeFiveClicks(t *testing.T) {
	h := serve(t, counter.New(struct{}{}))
	vtest.ExpectContains(t, h.mirror, "Count: 0")

	for i := 1; i <= 5; i++ {
		h.click("button")
		u := h.next()
		if u.IsFull() {
			t.Fatalf("click %d: got a full tree, want patches", i)
		}
		if u.Seq != uint64(i+1) {
			t.Errorf("click %d: seq = %d, want %d", i, u.Seq, i+1)
		}
		vtest.ExpectContains(t, h.mirror, fmt.Sprintf("Count: %d", i))
	}

	stats := h.session.Stats()
	if stats.EventsReceived != 5 || stats.EventsDropped != 0 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestServeClickBurst(t *testing.T) {
	h := serve(t, counter.New(struct{}{}))

	// Events are delivered in order, renders may be batched.
	for i := 0; i < 5; i++ {
		h.click("button")
	}
	for h.mirror.Text() != "+1Count: 5" {
		h.next()
	}
}

func TestServeTeardownOnTransportFailure(t *testing.T) {
	var mounted, cleaned atomic.Int32
	root := component.Func("Tracked", func(ctx context.Context) *vdom.VNode {
		hooks.UseEffect(ctx, func() hooks.Cleanup {
			mounted.Add(1)
			return func() { cleaned.Add(1) }
		}, hooks.Deps())
		return vdom.P("tracked")
	})
	h := serve(t, root.New(struct{}{}))

	h.client.Close()
	err := h.wait()
	if !errors.Is(err, vtest.ErrClosed) {
		t.Fatalf("Serve = %v, want %v", err, vtest.ErrClosed)
	}
	if mounted.Load() != 1 || cleaned.Load() != 1 {
		t.Errorf("mounted %d, cleaned %d; want 1 and 1", mounted.Load(), cleaned.Load())
	}
}

func TestServeCancelIsCleanShutdown(t *testing.T) {
	h := serve(t, counter.New(struct{}{}))
	h.cancel()
	if err := h.wait(); err != nil {
		t.Fatalf("Serve = %v, want nil", err)
	}
}

func TestSessionCloseEndsServe(t *testing.T) {
	h := serve(t, counter.New(struct{}{}))
	h.session.Close()
	if err := h.wait(); err != nil {
		t.Fatalf("Serve = %v, want nil", err)
	}
	select {
	case <-h.session.Done():
	default:
		t.Error("Done not closed after Serve returned")
	}
}

func TestServeTwice(t *testing.T) {
	h := serve(t, counter.New(struct{}{}))
	_, send, recv := vtest.Pipe()
	if err := h.session.Serve(context.Background(), send, recv); err == nil {
		t.Fatal("second Serve succeeded")
	}
}

func TestServeRateLimit(t *testing.T) {
	cfg := server.DefaultSessionConfig()
	cfg.EventRate = 0.001
	cfg.EventBurst = 2
	h := serve(t, counter.New(struct{}{}), server.WithSessionConfig(cfg))

	for i := 0; i < 5; i++ {
		h.click("button")
	}
	deadline := time.Now().Add(5 * time.Second)
	for h.session.Stats().EventsReceived < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("Stats = %+v", h.session.Stats())
		}
		time.Sleep(5 * time.Millisecond)
	}
	for h.mirror.Text() != "+1Count: 2" {
		h.next()
	}
	if got := h.session.Stats().EventsDropped; got != 3 {
		t.Errorf("EventsDropped = %d, want 3", got)
	}
}

func TestServeStaleTargetIgnored(t *testing.T) {
	h := serve(t, counter.New(struct{}{}))
	if err := h.client.Fire(context.Background(), "n999:onclick", nil); err != nil {
		t.Fatal(err)
	}
	h.click("button")
	h.next()
	vtest.ExpectContains(t, h.mirror, "Count: 1")
}

type recordingObserver struct {
	server.NopObserver
	started, ended atomic.Int32
	renders        atomic.Int32
	events         atomic.Int32
}

func (o *recordingObserver) SessionStarted(context.Context, string) { o.started.Add(1) }
func (o *recordingObserver) SessionEnded(context.Context, string, time.Duration, error) {
	o.ended.Add(1)
}
func (o *recordingObserver) RenderCompleted(context.Context, string, *protocol.LayoutUpdate, time.Duration) {
	o.renders.Add(1)
}
func (o *recordingObserver) EventDelivered(context.Context, string, string, time.Duration, error) {
	o.events.Add(1)
}

func TestServeObserver(t *testing.T) {
	first, second := &recordingObserver{}, &recordingObserver{}
	h := serve(t, counter.New(struct{}{}), server.WithObserver(server.MultiObserver{first, second}))

	h.click("button")
	h.next()
	h.cancel()
	if err := h.wait(); err != nil {
		t.Fatal(err)
	}

	for i, o := range []*recordingObserver{first, second} {
		if o.started.Load() != 1 || o.ended.Load() != 1 {
			t.Errorf("observer %d: started %d, ended %d", i, o.started.Load(), o.ended.Load())
		}
		if o.renders.Load() != 2 || o.events.Load() != 1 {
			t.Errorf("observer %d: renders %d, events %d; want 2 and 1", i, o.renders.Load(), o.events.Load())
		}
	}
}
