package server

import (
	"errors"
	"testing"
	"time"

	vangoerrors "github.com/vango-dev/live/internal/errors"
)

func TestDefaultSessionConfig(t *testing.T) {
	cfg := DefaultSessionConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !cfg.IncrementalPatches {
		t.Error("IncrementalPatches should default to true")
	}
	if cfg.ReadTimeout != 60*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
}

func TestSessionConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*SessionConfig)
	}{
		{"negative timeout", func(c *SessionConfig) { c.WriteTimeout = -time.Second }},
		{"message too large", func(c *SessionConfig) { c.MaxMessageSize = 1 << 30 }},
		{"negative rate", func(c *SessionConfig) { c.EventRate = -1 }},
		{"rate without burst", func(c *SessionConfig) { c.EventBurst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSessionConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, vangoerrors.New(vangoerrors.CodeInvalidConfig)) {
				t.Errorf("Validate = %v, want %s", err, vangoerrors.CodeInvalidConfig)
			}
		})
	}
}

func TestSessionConfigWithDefaults(t *testing.T) {
	cfg := (&SessionConfig{EventRate: 5, EventBurst: 1, ShowErrors: true}).withDefaults()
	if cfg.ReadTimeout == 0 || cfg.WriteTimeout == 0 || cfg.MaxMessageSize == 0 {
		t.Errorf("zero fields not filled: %+v", cfg)
	}
	if cfg.EventRate != 5 || cfg.EventBurst != 1 {
		t.Errorf("explicit fields overwritten: %+v", cfg)
	}
	if cfg.IncrementalPatches {
		t.Error("boolean fields must be kept as given")
	}

	lc := cfg.LayoutConfig()
	if !lc.ShowErrors || lc.IncrementalPatches {
		t.Errorf("LayoutConfig = %+v", lc)
	}

	var nilCfg *SessionConfig
	if got := nilCfg.withDefaults(); !got.IncrementalPatches {
		t.Error("nil config should yield the defaults")
	}
	if nilCfg.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestSessionConfigLimits(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.MaxMessageSize = 1024
	cfg.MaxDataDepth = 3
	l := cfg.Limits()
	if l.MaxMessageSize != 1024 || l.MaxDataDepth != 3 {
		t.Errorf("Limits = %+v", l)
	}
}
