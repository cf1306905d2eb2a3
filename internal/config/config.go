package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/live/internal/errors"
	"github.com/vango-dev/live/pkg/server"
)

// Configuration file names, in lookup order.
var FileNames = []string{"vango-live.json", "vango-live.yaml", "vango-live.yml"}

const (
	// DefaultPort is the default listen port.
	DefaultPort = 8080

	// DefaultHost is the default listen host.
	DefaultHost = "localhost"

	// DefaultWSPath is the default WebSocket route.
	DefaultWSPath = "/ws"

	// DefaultMetricsPath is the default Prometheus route.
	DefaultMetricsPath = "/metrics"

	// Environment overrides.
	EnvPort = "VANGO_LIVE_PORT"
	EnvHost = "VANGO_LIVE_HOST"
)

// Config is the complete server configuration.
type Config struct {
	// Name is the application name, used as service name in traces.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Server contains the HTTP listener configuration.
	Server ServerConfig `json:"server" yaml:"server"`

	// Session contains per-session settings.
	Session SessionConfig `json:"session" yaml:"session"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// WSPath is the route of the WebSocket endpoint.
	WSPath string `json:"wsPath,omitempty" yaml:"wsPath,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g. "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists origins accepted for WebSocket upgrades in
	// addition to the server's own. "*" accepts any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// SessionConfig mirrors server.SessionConfig with durations as strings.
// Empty fields keep the server defaults.
type SessionConfig struct {
	ReadTimeout           string  `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout          string  `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	HeartbeatInterval     string  `json:"heartbeatInterval,omitempty" yaml:"heartbeatInterval,omitempty"`
	EffectShutdownTimeout string  `json:"effectShutdownTimeout,omitempty" yaml:"effectShutdownTimeout,omitempty"`
	MaxMessageSize        int64   `json:"maxMessageSize,omitempty" yaml:"maxMessageSize,omitempty"`
	MaxDataDepth          int     `json:"maxDataDepth,omitempty" yaml:"maxDataDepth,omitempty"`
	EventRate             float64 `json:"eventRate,omitempty" yaml:"eventRate,omitempty"`
	EventBurst            int     `json:"eventBurst,omitempty" yaml:"eventBurst,omitempty"`
	IncrementalPatches    *bool   `json:"incrementalPatches,omitempty" yaml:"incrementalPatches,omitempty"`
	ShowErrors            bool    `json:"showErrors,omitempty" yaml:"showErrors,omitempty"`
	EnableCompression     bool    `json:"enableCompression,omitempty" yaml:"enableCompression,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes metrics and records session activity.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the route of the metrics endpoint.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled traces sessions with the global tracer provider.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TracerName is the name of the tracer.
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// Load reads configuration from dir. It returns an error with code
// CodeConfigNotFound if no configuration file exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.CodeConfigNotFound).
		WithDetail("No configuration file found in " + dir).
		WithSuggestion("Create vango-live.yaml, or run without a configuration file to use the defaults")
}

// LoadOrDefault is Load, falling back to New when dir has no configuration
// file. Environment overrides are applied in both cases.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err == nil {
		return cfg, nil
	}
	if ve, ok := err.(*errors.VangoError); ok && ve.Code == errors.CodeConfigNotFound {
		cfg = New()
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return nil, err
}

// LoadFile reads configuration from path. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).WithDetail("No file at " + path)
		}
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithPath(path)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "vango-live"
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "vango"
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = c.Name
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// applyEnv applies the environment overrides.
func (c *Config) applyEnv() error {
	if host := os.Getenv(EnvHost); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv(EnvPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return errors.New(errors.CodeInvalidConfig).
				WithDetailf("%s=%q is not a port number.", EnvPort, port)
		}
		c.Server.Port = n
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("Port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("wsPath %q must start with a slash.", c.Server.WSPath)
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("Log format %q is not text or json.", c.Log.Format)
	}
	sc, err := c.SessionConfig()
	if err != nil {
		return err
	}
	return sc.Validate()
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("server.shutdownTimeout", c.Server.ShutdownTimeout)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New(errors.CodeInvalidConfig).
			WithDetailf("Log level %q is not one of debug, info, warn, error.", c.Log.Level)
	}
	return level, nil
}

// SessionConfig converts the session section into a server.SessionConfig.
// Fields left empty keep the server defaults.
func (c *Config) SessionConfig() (*server.SessionConfig, error) {
	sc := server.DefaultSessionConfig()
	s := c.Session

	durations := []struct {
		name  string
		value string
		into  *time.Duration
	}{
		{"session.readTimeout", s.ReadTimeout, &sc.ReadTimeout},
		{"session.writeTimeout", s.WriteTimeout, &sc.WriteTimeout},
		{"session.heartbeatInterval", s.HeartbeatInterval, &sc.HeartbeatInterval},
		{"session.effectShutdownTimeout", s.EffectShutdownTimeout, &sc.EffectShutdownTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := parseDuration(d.name, d.value)
		if err != nil {
			return nil, err
		}
		*d.into = v
	}

	if s.MaxMessageSize != 0 {
		sc.MaxMessageSize = s.MaxMessageSize
	}
	if s.MaxDataDepth != 0 {
		sc.MaxDataDepth = s.MaxDataDepth
	}
	if s.EventRate != 0 {
		sc.EventRate = s.EventRate
	}
	if s.EventBurst != 0 {
		sc.EventBurst = s.EventBurst
	}
	if s.IncrementalPatches != nil {
		sc.IncrementalPatches = *s.IncrementalPatches
	}
	sc.ShowErrors = s.ShowErrors
	sc.EnableCompression = s.EnableCompression
	return sc, nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, errors.New(errors.CodeInvalidConfig).
			WithDetailf("%s: %q is not a valid duration.", name, value).
			WithSuggestion("Use Go duration syntax, e.g. \"30s\" or \"1m30s\"")
	}
	return d, nil
}
