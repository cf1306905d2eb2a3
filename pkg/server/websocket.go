package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/live/pkg/protocol"
)

// Transport carries a session over a WebSocket connection. Updates and
// events travel as JSON text frames.
type Transport struct {
	conn   *websocket.Conn
	config *SessionConfig
	logger *slog.Logger

	// gorilla/websocket allows one concurrent writer. Control frames are
	// exempt.
	writeMu sync.Mutex

	closeOnce sync.Once
}

// WebSocketTransport wraps conn. A nil config uses DefaultSessionConfig.
func WebSocketTransport(conn *websocket.Conn, config *SessionConfig, logger *slog.Logger) *Transport {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{conn: conn, config: config, logger: logger}

	// Messages up to the hard limit are read so that DecodeEvent can reply
	// to oversized ones; beyond it gorilla drops the connection.
	conn.SetReadLimit(protocol.HardMaxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	})
	return t
}

// Send writes an update as one text frame.
func (t *Transport) Send(ctx context.Context, update *protocol.LayoutUpdate) error {
	data, err := protocol.EncodeUpdate(update)
	if err != nil {
		return err
	}
	return t.write(ctx, data)
}

func (t *Transport) write(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(t.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return t.mapError(ctx, err)
	}
	return nil
}

// Recv reads frames until one decodes into an event. Frames that fail to
// decode are answered with an error message and skipped.
func (t *Transport) Recv(ctx context.Context) (*protocol.LayoutEvent, error) {
	// Unblock the read when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, t.mapError(ctx, err)
		}
		if kind != websocket.TextMessage {
			t.logger.Warn("ignoring non-text frame", "type", kind)
			continue
		}

		ev, err := protocol.DecodeEvent(data, t.config.Limits())
		if err != nil {
			t.logger.Warn("invalid event", "error", err, "size", len(data))
			if reply, eerr := protocol.EncodeError(err); eerr == nil {
				if werr := t.write(ctx, reply); werr != nil {
					return nil, werr
				}
			}
			continue
		}
		return ev, nil
	}
}

// Heartbeat pings the client every HeartbeatInterval until ctx ends or a
// ping fails.
func (t *Transport) Heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(t.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(t.config.WriteTimeout)
			if err := t.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return t.mapError(ctx, err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Close sends a close frame with code and closes the connection.
func (t *Transport) Close(code int, reason string) error {
	var err error
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = t.conn.Close()
	})
	return err
}

// mapError turns peer closes into ErrTransportClosed and reads interrupted by
// ctx into ctx.Err().
func (t *Transport) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if websocket.IsUnexpectedCloseError(err,
			websocket.CloseGoingAway,
			websocket.CloseNormalClosure,
			websocket.CloseNoStatusReceived) {
			t.logger.Debug("connection closed", "code", closeErr.Code, "text", closeErr.Text)
		}
		return ErrTransportClosed
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return ErrTransportClosed
	}
	return err
}
