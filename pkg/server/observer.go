package server

import (
	"context"
	"time"

	"github.com/vango-dev/live/pkg/protocol"
)

// Observer is notified of session activity. Implementations must be safe
// for concurrent use: the two loops of a session report independently, and
// one observer is usually shared by all sessions.
type Observer interface {
	// SessionStarted is called once the layout is open.
	SessionStarted(ctx context.Context, sessionID string)

	// SessionEnded is called after the layout is closed. err is nil for a
	// clean shutdown.
	SessionEnded(ctx context.Context, sessionID string, lifetime time.Duration, err error)

	// RenderCompleted is called after an update was sent. took is the
	// duration of the render pass, not including the send.
	RenderCompleted(ctx context.Context, sessionID string, update *protocol.LayoutUpdate, took time.Duration)

	// EventDelivered is called after an event was delivered to the layout.
	EventDelivered(ctx context.Context, sessionID, target string, took time.Duration, err error)

	// EventDropped is called for events rejected by the rate limiter.
	EventDropped(ctx context.Context, sessionID, target string)
}

// NopObserver ignores all notifications. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) SessionStarted(context.Context, string) {}
func (NopObserver) SessionEnded(context.Context, string, time.Duration, error) {}
func (NopObserver) RenderCompleted(context.Context, string, *protocol.LayoutUpdate, time.Duration) {
}
func (NopObserver) EventDelivered(context.Context, string, string, time.Duration, error) {}
func (NopObserver) EventDropped(context.Context, string, string) {}

// MultiObserver fans notifications out to several observers, in order.
type MultiObserver []Observer

func (m MultiObserver) SessionStarted(ctx context.Context, id string) {
	for _, o := range m {
		o.SessionStarted(ctx, id)
	}
}

func (m MultiObserver) SessionEnded(ctx context.Context, id string, lifetime time.Duration, err error) {
	for _, o := range m {
		o.SessionEnded(ctx, id, lifetime, err)
	}
}

func (m MultiObserver) RenderCompleted(ctx context.Context, id string, u *protocol.LayoutUpdate, took time.Duration) {
	for _, o := range m {
		o.RenderCompleted(ctx, id, u, took)
	}
}

func (m MultiObserver) EventDelivered(ctx context.Context, id, target string, took time.Duration, err error) {
	for _, o := range m {
		o.EventDelivered(ctx, id, target, took, err)
	}
}

func (m MultiObserver) EventDropped(ctx context.Context, id, target string) {
	for _, o := range m {
		o.EventDropped(ctx, id, target)
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = MultiObserver(nil)
)
