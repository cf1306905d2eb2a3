package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	vangoerrors "github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/protocol"
)

// SendFunc delivers an update to the client.
type SendFunc func(ctx context.Context, update *protocol.LayoutUpdate) error

// RecvFunc waits for the next event from the client.
type RecvFunc func(ctx context.Context) (*protocol.LayoutEvent, error)

// ErrTransportClosed is returned by transports when the peer closed the
// connection. Serve treats it as a clean shutdown.
var ErrTransportClosed = vangoerrors.New(vangoerrors.CodeTransportClosed)

// Stats is a snapshot of a session's counters.
type Stats struct {
	UpdatesSent    uint64
	PatchOps       uint64
	EventsReceived uint64
	EventsDropped  uint64
}

// Session runs one layout over one transport.
type Session struct {
	// ID is unique per session.
	ID string

	layout   *layout.Layout
	config   *SessionConfig
	logger   *slog.Logger
	observer Observer

	updatesSent    atomic.Uint64
	patchOps       atomic.Uint64
	eventsReceived atomic.Uint64
	eventsDropped  atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	closing bool
	done    chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithSessionConfig sets the session configuration.
func WithSessionConfig(cfg *SessionConfig) Option {
	return func(s *Session) {
		s.config = cfg.withDefaults()
	}
}

// WithObserver sets the session's observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger. The session adds its id to every record.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.ID = id
		}
	}
}

// NewSession creates a session for l. The layout must not be opened yet;
// Serve opens and closes it.
func NewSession(l *layout.Layout, opts ...Option) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		layout:   l,
		config:   DefaultSessionConfig(),
		logger:   slog.Default(),
		observer: NopObserver{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.ID)
	return s
}

// Serve runs l over send and recv until the client disconnects, ctx is
// cancelled or either side fails. See Session.Serve.
func Serve(ctx context.Context, l *layout.Layout, send SendFunc, recv RecvFunc, opts ...Option) error {
	return NewSession(l, opts...).Serve(ctx, send, recv)
}

// Serve opens the layout and runs the outgoing and incoming loops until one
// of them fails. The first failure cancels the other loop; the layout is
// closed after both returned.
//
// A disconnect (ErrTransportClosed) or cancellation of ctx is a clean
// shutdown and returns nil. Any other failure is returned.
//
// Serve may be called once.
func (s *Session) Serve(ctx context.Context, send SendFunc, recv RecvFunc) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return vangoerrors.New(vangoerrors.CodeLayoutClosed).WithDetail("Session already served.")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	if s.closing {
		s.cancel()
	}
	s.mu.Unlock()
	defer close(s.done)
	defer s.cancel()

	begin := time.Now()
	if err := s.layout.Open(ctx); err != nil {
		return err
	}
	s.logger.Info("session started")
	s.observer.SessionStarted(ctx, s.ID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sendLoop(gctx, send) })
	g.Go(func() error { return s.recvLoop(gctx, recv) })
	err := g.Wait()

	if cerr := s.layout.Close(); cerr != nil {
		s.logger.Warn("layout close failed", "error", cerr)
	}

	if isCleanShutdown(err) {
		err = nil
	}
	lifetime := time.Since(begin)
	if err != nil {
		s.logger.Error("session failed", "error", err, "lifetime", lifetime)
	} else {
		s.logger.Info("session ended", "lifetime", lifetime)
	}
	s.observer.SessionEnded(context.WithoutCancel(ctx), s.ID, lifetime, err)
	return err
}

// sendLoop renders and sends updates, in sequence order.
func (s *Session) sendLoop(ctx context.Context, send SendFunc) error {
	for {
		update, err := s.layout.Render(ctx)
		if err != nil {
			return err
		}
		took := s.layout.RenderDuration()

		wctx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
		err = send(wctx, update)
		cancel()
		if err != nil {
			return err
		}

		s.updatesSent.Add(1)
		s.patchOps.Add(uint64(len(update.Changes)))
		s.observer.RenderCompleted(ctx, s.ID, update, took)
	}
}

// recvLoop receives events and delivers them one at a time, so the layout
// sees them in arrival order.
func (s *Session) recvLoop(ctx context.Context, recv RecvFunc) error {
	var limiter *rate.Limiter
	if s.config.EventRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.config.EventRate), s.config.EventBurst)
	}

	for {
		ev, err := recv(ctx)
		if err != nil {
			return err
		}
		s.eventsReceived.Add(1)

		if limiter != nil && !limiter.Allow() {
			s.eventsDropped.Add(1)
			s.logger.Warn("event rate limit exceeded, dropping event", "target", ev.Target)
			s.observer.EventDropped(ctx, s.ID, ev.Target)
			continue
		}

		begin := time.Now()
		err = s.layout.Deliver(ctx, ev)
		s.observer.EventDelivered(ctx, s.ID, ev.Target, time.Since(begin), err)
		if err != nil {
			return err
		}
	}
}

// Close stops the session. A session closed before Serve ends as soon as it
// starts. Close does not wait; use Done for that.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Done is closed when Serve has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats {
	return Stats{
		UpdatesSent:    s.updatesSent.Load(),
		PatchOps:       s.patchOps.Load(),
		EventsReceived: s.eventsReceived.Load(),
		EventsDropped:  s.eventsDropped.Load(),
	}
}

// Logger returns the session's logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

func isCleanShutdown(err error) bool {
	return err == nil ||
		errors.Is(err, ErrTransportClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, layout.ErrClosed)
}
