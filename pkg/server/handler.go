package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/vdom"
)

// Handler upgrades HTTP requests to WebSocket connections and runs a session
// for each.
type Handler struct {
	// Root builds the root component of a new session.
	Root func(conn hooks.Connection) vdom.Component

	// Config is the session configuration. Nil uses DefaultSessionConfig.
	Config *SessionConfig

	// Observer is notified of every session's activity. Optional.
	Observer Observer

	// Manager tracks the handler's sessions. Optional.
	Manager *Manager

	// Logger is the base logger. Nil uses slog.Default.
	Logger *slog.Logger

	// CheckOrigin validates the Origin header of upgrade requests. Nil
	// accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool
}

// ServeHTTP implements http.Handler. It returns when the session ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := h.Config.withDefaults()

	upgrader := websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       h.CheckOrigin,
		EnableCompression: cfg.EnableCompression,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	connection := hooks.Connection{
		Location: hooks.Location{Path: r.URL.Path, QueryString: r.URL.RawQuery},
		Scope: map[string]any{
			"remote_addr": r.RemoteAddr,
			"headers":     r.Header.Clone(),
		},
		Carrier: conn,
	}

	t := WebSocketTransport(conn, cfg, logger)
	s := NewSession(
		layout.New(h.Root(connection),
			layout.WithLogger(logger),
			layout.WithConnection(connection),
			layout.WithConfig(cfg.LayoutConfig()),
		),
		WithSessionConfig(cfg),
		WithObserver(h.Observer),
		WithLogger(logger),
	)
	if h.Manager != nil {
		h.Manager.Add(s)
	}

	// The request context is not cancelled on client disconnect after the
	// upgrade; the transport reports that.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go func() {
		if err := t.Heartbeat(ctx); err != nil {
			s.Logger().Debug("heartbeat stopped", "error", err)
			s.Close()
		}
	}()

	err = s.Serve(ctx, t.Send, t.Recv)
	code, reason := websocket.CloseNormalClosure, ""
	if err != nil {
		code, reason = websocket.CloseInternalServerErr, "session failed"
	}
	t.Close(code, reason)
}
