package hooks

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// fakeHost records scheduled renders and runs spawned tasks on goroutines.
type fakeHost struct {
	mu        sync.Mutex
	scheduled []*LifeCycleHook
	parents   map[*LifeCycleHook]*LifeCycleHook
	conn      Connection
	wg        sync.WaitGroup
	closed    bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{parents: make(map[*LifeCycleHook]*LifeCycleHook)}
}

func (f *fakeHost) ScheduleRender(h *LifeCycleHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, h)
}

func (f *fakeHost) Ancestor(h *LifeCycleHook) *LifeCycleHook {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parents[h]
}

func (f *fakeHost) Spawn(fn func(ctx context.Context)) *Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := NewTask(cancel)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer t.Finish()
		defer cancel()
		fn(ctx)
	}()
	return t
}

func (f *fakeHost) Connection() Connection { return f.conn }

func (f *fakeHost) Logger() *slog.Logger { return slog.Default() }

func (f *fakeHost) scheduledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scheduled)
}

func (f *fakeHost) child(parent *LifeCycleHook, path string) *LifeCycleHook {
	h := NewLifeCycleHook(path, path, f)
	f.mu.Lock()
	f.parents[h] = parent
	f.mu.Unlock()
	return h
}

// render runs one complete render pass of fn as the layout would.
func render(t *testing.T, h *LifeCycleHook, fn func(ctx context.Context)) {
	t.Helper()
	if err := tryRender(h, fn); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func tryRender(h *LifeCycleHook, fn func(ctx context.Context)) (err error) {
	ctx, err := Push(context.Background(), h)
	if err != nil {
		return err
	}
	h.BeginRender()
	defer func() {
		if r := recover(); r != nil {
			_ = Pop(ctx)
			h.AbortRender()
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	fn(ctx)
	_ = Pop(ctx)
	if err := h.EndRender(); err != nil {
		h.AbortRender()
		return err
	}
	h.CommitEffects()
	return nil
}
