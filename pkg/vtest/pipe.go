package vtest

import (
	"context"
	"errors"
	"sync"

	"github.com/vango-dev/live/pkg/protocol"
)

// ErrClosed is returned by both ends of a pipe once it is closed.
var ErrClosed = errors.New("vtest: pipe closed")

// Client is the client end of an in-memory session transport.
type Client struct {
	updates chan *protocol.LayoutUpdate
	events  chan *protocol.LayoutEvent

	closeOnce sync.Once
	closed    chan struct{}
}

// Pipe creates an in-memory transport. send and recv have the signatures of
// server.SendFunc and server.RecvFunc; the returned client sees what the
// session sends and feeds what it receives.
func Pipe() (client *Client, send func(context.Context, *protocol.LayoutUpdate) error, recv func(context.Context) (*protocol.LayoutEvent, error)) {
	c := &Client{
		updates: make(chan *protocol.LayoutUpdate, 64),
		events:  make(chan *protocol.LayoutEvent, 64),
		closed:  make(chan struct{}),
	}
	return c, c.serverSend, c.serverRecv
}

func (c *Client) serverSend(ctx context.Context, u *protocol.LayoutUpdate) error {
	select {
	case c.updates <- u:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) serverRecv(ctx context.Context) (*protocol.LayoutEvent, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Next waits for the next update the session sends.
func (c *Client) Next(ctx context.Context) (*protocol.LayoutUpdate, error) {
	select {
	case u := <-c.updates:
		return u, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fire sends an event for target with data as payload.
func (c *Client) Fire(ctx context.Context, target string, data any) error {
	ev, err := protocol.NewLayoutEvent(target, data)
	if err != nil {
		return err
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects the client. The session's send and recv fail with
// ErrClosed from then on.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}
