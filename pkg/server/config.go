package server

import (
	"time"

	"github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/layout"
	"github.com/vango-dev/live/pkg/protocol"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// Timeouts

	// ReadTimeout is the maximum time to wait for a message from the client.
	// Pongs extend it.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxDataDepth is the maximum nesting of an event's data payload.
	// Default: 64.
	MaxDataDepth int

	// EventRate is the sustained number of client events per second a
	// session accepts. Events beyond the rate and EventBurst are dropped.
	// Zero disables rate limiting.
	// Default: 100.
	EventRate float64

	// EventBurst is the number of events accepted at once above EventRate.
	// Default: 50.
	EventBurst int

	// Rendering

	// IncrementalPatches sends patches after the first render instead of
	// the full tree.
	// Default: true.
	IncrementalPatches bool

	// ShowErrors includes render error messages in error placeholders.
	// Default: false.
	ShowErrors bool

	// EffectShutdownTimeout bounds how long closing a session waits for
	// background effects and handlers.
	// Default: 5 seconds.
	EffectShutdownTimeout time.Duration

	// Features

	// EnableCompression enables WebSocket compression.
	// Default: false.
	EnableCompression bool
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          10 * time.Second,
		HeartbeatInterval:     30 * time.Second,
		MaxMessageSize:        protocol.DefaultMaxMessageSize,
		MaxDataDepth:          protocol.DefaultMaxDataDepth,
		EventRate:             100,
		EventBurst:            50,
		IncrementalPatches:    true,
		EffectShutdownTimeout: 5 * time.Second,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Validate reports the first invalid field.
func (c *SessionConfig) Validate() error {
	switch {
	case c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.HeartbeatInterval < 0:
		return errors.New(errors.CodeInvalidConfig).WithDetail("Timeouts must not be negative.")
	case c.MaxMessageSize > protocol.HardMaxMessageSize:
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("MaxMessageSize %d exceeds the hard limit of %d bytes.", c.MaxMessageSize, protocol.HardMaxMessageSize)
	case c.EventRate < 0:
		return errors.New(errors.CodeInvalidConfig).WithDetail("EventRate must not be negative.")
	case c.EventRate > 0 && c.EventBurst <= 0:
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("EventBurst must be positive when EventRate is set.").
			WithSuggestion("Set EventBurst to at least 1, or EventRate to 0 to disable rate limiting.")
	}
	return nil
}

// withDefaults fills zero timeouts and limits from DefaultSessionConfig.
func (c *SessionConfig) withDefaults() *SessionConfig {
	d := DefaultSessionConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.MaxDataDepth == 0 {
		out.MaxDataDepth = d.MaxDataDepth
	}
	if out.EffectShutdownTimeout == 0 {
		out.EffectShutdownTimeout = d.EffectShutdownTimeout
	}
	return out
}

// Limits returns the protocol limits for decoding client messages.
func (c *SessionConfig) Limits() protocol.Limits {
	return protocol.Limits{
		MaxMessageSize: int(c.MaxMessageSize),
		MaxDataDepth:   c.MaxDataDepth,
	}
}

// LayoutConfig returns the layout settings carried by the session config.
func (c *SessionConfig) LayoutConfig() layout.Config {
	cfg := layout.DefaultConfig()
	cfg.IncrementalPatches = c.IncrementalPatches
	cfg.ShowErrors = c.ShowErrors
	if c.EffectShutdownTimeout > 0 {
		cfg.EffectShutdownTimeout = c.EffectShutdownTimeout
	}
	return cfg
}
