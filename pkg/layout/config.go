package layout

import (
	"log/slog"
	"time"

	"github.com/vango-dev/live/pkg/hooks"
)

// Config holds the tunables of a layout.
type Config struct {
	// MaxRenderDepth is the maximum nesting of components. A component
	// deeper than this renders an error placeholder.
	// Default: 256.
	MaxRenderDepth int

	// EffectShutdownTimeout bounds how long Close waits for background
	// tasks after cancelling them.
	// Default: 5 seconds.
	EffectShutdownTimeout time.Duration

	// IncrementalPatches sends patches after the first render. When false,
	// every update carries the full tree.
	// Default: true.
	IncrementalPatches bool

	// ShowErrors puts the error message in render error placeholders.
	// Otherwise placeholders show a generic message.
	// Default: false.
	ShowErrors bool

	// AsyncHandlerLimit is the maximum number of background event handlers
	// running at once. Events for async handlers beyond the limit are
	// dropped with a warning.
	// Default: 64.
	AsyncHandlerLimit int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRenderDepth:        256,
		EffectShutdownTimeout: 5 * time.Second,
		IncrementalPatches:    true,
		AsyncHandlerLimit:     64,
	}
}

// withDefaults fills zero numeric fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRenderDepth <= 0 {
		c.MaxRenderDepth = d.MaxRenderDepth
	}
	if c.EffectShutdownTimeout <= 0 {
		c.EffectShutdownTimeout = d.EffectShutdownTimeout
	}
	if c.AsyncHandlerLimit <= 0 {
		c.AsyncHandlerLimit = d.AsyncHandlerLimit
	}
	return c
}

// Option configures a Layout.
type Option func(*Layout)

// WithLogger sets the layout's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Layout) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithConnection sets the connection metadata components see through
// hooks.UseConnection and hooks.UseLocation.
func WithConnection(conn hooks.Connection) Option {
	return func(l *Layout) {
		l.conn = conn
	}
}

// WithConfig replaces the layout's configuration. Zero numeric fields take
// their defaults.
func WithConfig(cfg Config) Option {
	return func(l *Layout) {
		l.config = cfg.withDefaults()
	}
}
