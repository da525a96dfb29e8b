package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/livepen/internal/domain/preview"
	"github.com/GriffinCanCode/livepen/internal/domain/relay"
	"github.com/GriffinCanCode/livepen/internal/domain/session"
	"github.com/GriffinCanCode/livepen/internal/domain/transfer"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML
var ErrUnsupportedFormat = errors.New("unsupported config file format")

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Relay     RelayConfig     `yaml:"relay" toml:"relay"`
	Preview   PreviewConfig   `yaml:"preview" toml:"preview"`
	Session   SessionConfig   `yaml:"session" toml:"session"`
	Upload    UploadConfig    `yaml:"upload" toml:"upload"`
	WebSocket WebSocketConfig `yaml:"websocket" toml:"websocket"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" yaml:"port" toml:"port"`
	Host            string   `envconfig:"HOST" yaml:"host" toml:"host"`
	Compression     bool     `envconfig:"HTTP_GZIP" yaml:"compression" toml:"compression"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	CORSOrigins     []string `envconfig:"CORS_ALLOWED_ORIGINS" yaml:"cors_origins" toml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// RelayConfig bounds serialization of relayed values and the message list.
type RelayConfig struct {
	MaxDepth    int      `envconfig:"RELAY_MAX_DEPTH" yaml:"max_depth" toml:"max_depth"`
	MaxLength   int      `envconfig:"RELAY_MAX_LENGTH" yaml:"max_length" toml:"max_length"`
	DenyKeys    []string `envconfig:"RELAY_DENY_KEYS" yaml:"deny_keys" toml:"deny_keys"`
	LogCapacity int      `envconfig:"RELAY_LOG_CAPACITY" yaml:"log_capacity" toml:"log_capacity"`
}

// PreviewConfig holds headless renderer configuration.
type PreviewConfig struct {
	Headless  bool     `envconfig:"PREVIEW_HEADLESS" yaml:"headless" toml:"headless"`
	Timeout   Duration `envconfig:"PREVIEW_TIMEOUT" yaml:"timeout" toml:"timeout"`
	PoolSize  int      `envconfig:"PREVIEW_POOL_SIZE" yaml:"pool_size" toml:"pool_size"`
	MaxTimers int      `envconfig:"PREVIEW_MAX_TIMERS" yaml:"max_timers" toml:"max_timers"`
}

// SessionConfig holds session limits.
type SessionConfig struct {
	Max              int      `envconfig:"SESSION_MAX" yaml:"max" toml:"max"`
	IdleTimeout      Duration `envconfig:"SESSION_IDLE_TIMEOUT" yaml:"idle_timeout" toml:"idle_timeout"`
	JanitorInterval  Duration `envconfig:"SESSION_JANITOR_INTERVAL" yaml:"janitor_interval" toml:"janitor_interval"`
	SubscriberBuffer int      `envconfig:"SESSION_SUBSCRIBER_BUFFER" yaml:"subscriber_buffer" toml:"subscriber_buffer"`
}

// UploadConfig holds import limits.
type UploadConfig struct {
	MaxBytes int64 `envconfig:"UPLOAD_MAX_BYTES" yaml:"max_bytes" toml:"max_bytes"`
}

// WebSocketConfig holds stream configuration.
type WebSocketConfig struct {
	AllowedOrigins []string `envconfig:"WS_ALLOWED_ORIGINS" yaml:"allowed_origins" toml:"allowed_origins"`
	PingInterval   Duration `envconfig:"WS_PING_INTERVAL" yaml:"ping_interval" toml:"ping_interval"`
}

// Load loads configuration from environment variables on top of Default.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile layers an optional YAML or TOML file and then environment
// variables on top of Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	serializer := relay.DefaultSerializerConfig()
	renderer := preview.DefaultConfig()
	sessions := session.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			Compression:     true,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Relay: RelayConfig{
			MaxDepth:    serializer.MaxDepth,
			MaxLength:   serializer.MaxLength,
			DenyKeys:    serializer.DenyKeys,
			LogCapacity: relay.DefaultCapacity,
		},
		Preview: PreviewConfig{
			Headless:  true,
			Timeout:   Duration(renderer.Timeout),
			PoolSize:  renderer.PoolSize,
			MaxTimers: renderer.MaxTimers,
		},
		Session: SessionConfig{
			Max:              sessions.MaxSessions,
			IdleTimeout:      Duration(sessions.IdleTimeout),
			JanitorInterval:  Duration(sessions.JanitorInterval),
			SubscriberBuffer: sessions.SubscriberBuffer,
		},
		Upload: UploadConfig{
			MaxBytes: transfer.DefaultMaxUploadBytes,
		},
		WebSocket: WebSocketConfig{
			PingInterval: Duration(30 * time.Second),
		},
	}
}

// Serializer returns the relay serializer bounds.
func (c *Config) Serializer() relay.SerializerConfig {
	return relay.SerializerConfig{
		MaxDepth:  c.Relay.MaxDepth,
		MaxLength: c.Relay.MaxLength,
		DenyKeys:  c.Relay.DenyKeys,
	}
}

// Renderer returns the headless renderer configuration.
func (c *Config) Renderer() preview.Config {
	cfg := preview.DefaultConfig()
	cfg.Timeout = c.Preview.Timeout.Std()
	cfg.PoolSize = c.Preview.PoolSize
	cfg.MaxTimers = c.Preview.MaxTimers
	return cfg
}

// Sessions returns the session manager configuration.
func (c *Config) Sessions() session.Config {
	return session.Config{
		MaxSessions:      c.Session.Max,
		IdleTimeout:      c.Session.IdleTimeout.Std(),
		JanitorInterval:  c.Session.JanitorInterval.Std(),
		LogCapacity:      c.Relay.LogCapacity,
		SubscriberBuffer: c.Session.SubscriberBuffer,
		Serializer:       c.Serializer(),
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Duration is a time.Duration written as "1m30s" in every config source.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
