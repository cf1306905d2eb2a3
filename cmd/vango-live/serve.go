package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/live/internal/config"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/middleware"
	"github.com/vango-dev/live/pkg/render"
	"github.com/vango-dev/live/pkg/server"
	"github.com/vango-dev/live/pkg/vdom"
)

type serveOptions struct {
	dir        string
	port       int
	host       string
	showErrors bool
	todos      int
	tick       time.Duration
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application",
		Long: `Serve the demo application over HTTP and WebSocket.

Configuration is read from vango-live.json, vango-live.yaml or
vango-live.yml in --dir. Flags override the file; the VANGO_LIVE_PORT
and VANGO_LIVE_HOST environment variables override both.

Routes:
  /          server-rendered page
  /ws        live session endpoint (server.wsPath)
  /healthz   liveness probe
  /metrics   Prometheus metrics (metrics.path, when enabled)

Examples:
  vango-live serve
  vango-live serve --port=9000 --host=0.0.0.0
  vango-live serve --dir=./deploy --show-errors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", ".", "Directory containing the configuration file")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&opts.showErrors, "show-errors", false, "Show component errors to clients")
	cmd.Flags().IntVar(&opts.todos, "todos", 3, "Number of items the demo todo list starts with")
	cmd.Flags().DurationVar(&opts.tick, "tick", time.Second, "Demo clock interval (0 disables it)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := config.LoadOrDefault(opts.dir)
	if err != nil {
		errorMsg("Invalid configuration")
		return err
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.showErrors {
		cfg.Session.ShowErrors = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	props := demoProps{Todos: opts.todos, Tick: opts.tick}
	srv, err := newLiveServer(cfg, logger, func(hooks.Connection) vdom.Component {
		return demoApp.New(props)
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Address(), err)
	}

	printBanner()
	if path := cfg.Path(); path != "" {
		info("Config:    %s", path)
	}
	success("Listening on http://%s", ln.Addr())
	info("WebSocket: %s", cfg.Server.WSPath)
	if cfg.Metrics.Enabled {
		info("Metrics:   %s", cfg.Metrics.Path)
	}
	fmt.Println()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, ln); err != nil {
		errorMsg("Server stopped: %v", err)
		return err
	}
	success("Shut down cleanly")
	return nil
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// liveServer wires the HTTP routes, the session handler and its observers.
type liveServer struct {
	cfg      *config.Config
	session  *server.SessionConfig
	logger   *slog.Logger
	root     func(hooks.Connection) vdom.Component
	manager  *server.Manager
	registry *prometheus.Registry
	handler  http.Handler
}

func newLiveServer(cfg *config.Config, logger *slog.Logger, root func(hooks.Connection) vdom.Component) (*liveServer, error) {
	sessionCfg, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}

	s := &liveServer{
		cfg:     cfg,
		session: sessionCfg,
		logger:  logger,
		root:    root,
		manager: server.NewManager(logger),
	}

	var observers server.MultiObserver
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, middleware.Prometheus(
			middleware.WithRegistry(s.registry),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		))
	}
	if cfg.Tracing.Enabled {
		observers = append(observers, middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
		))
	}

	ws := &server.Handler{
		Root:        root,
		Config:      sessionCfg,
		Manager:     s.manager,
		Logger:      logger,
		CheckOrigin: checkOrigin(cfg.Server.AllowedOrigins),
	}
	if len(observers) > 0 {
		ws.Observer = observers
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/healthz", s.handleHealth)
	r.Handle(cfg.Server.WSPath, ws)
	if s.registry != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	s.handler = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *liveServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run serves on ln until ctx is done, then shuts down: the listener closes
// first, then live sessions are closed, bounded by the shutdown timeout.
func (s *liveServer) Run(ctx context.Context, ln net.Listener) error {
	timeout, err := s.cfg.ShutdownTimeout()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", "sessions", s.manager.Count())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		// Hijacked WebSocket connections are not tracked by Shutdown.
		err := httpServer.Shutdown(shutdownCtx)
		if cerr := s.manager.CloseAll(shutdownCtx); err == nil {
			err = cerr
		}
		return err
	})
	return g.Wait()
}

// handlePage renders the first view of a session as HTML. The layout is
// opened, rendered once and closed; the browser then connects to the
// WebSocket endpoint for the live session.
func (s *liveServer) handlePage(w http.ResponseWriter, r *http.Request) {
	conn := hooks.Connection{
		Location: hooks.Location{Path: r.URL.Path, QueryString: r.URL.RawQuery},
		Scope: map[string]any{
			"remote_addr": r.RemoteAddr,
			"headers":     r.Header.Clone(),
		},
	}
	l := layout.New(s.root(conn),
		layout.WithLogger(s.logger),
		layout.WithConnection(conn),
		layout.WithConfig(s.session.LayoutConfig()),
	)
	defer l.Close()

	if err := l.Open(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	update, err := l.Render(r.Context())
	if err != nil {
		s.logger.Error("page render failed", "error", err, "request_id", chimw.GetReqID(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := render.PageData{
		Title:  s.cfg.Name,
		Body:   update.Root,
		WSPath: s.cfg.Server.WSPath,
	}
	if err := render.NewStreamingRenderer(w, render.RendererConfig{}).RenderPage(page); err != nil {
		s.logger.Warn("page write failed", "error", err, "request_id", chimw.GetReqID(r.Context()))
	}
}

func (s *liveServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "ok sessions=%d\n", s.manager.Count())
}

// requestLogger logs every request at debug level. WebSocket requests are
// logged when their session ends.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}

// checkOrigin accepts same-origin requests, requests without an Origin
// header and the listed origins. "*" accepts everything. An empty list keeps
// the upgrader's same-origin default.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
				return true
			}
		}
		return false
	}
}
