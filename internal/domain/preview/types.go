package preview

import (
	"time"

	"github.com/GriffinCanCode/livepen/internal/domain/relay"
)

// Config defines headless renderer configuration
type Config struct {
	Timeout        time.Duration // Wall clock budget for one document
	MaxTimers      int           // setTimeout callbacks run after the scripts; negative disables
	MaxCallStack   int           // goja call stack limit
	PoolSize       int           // Concurrent runtimes
	AcquireTimeout time.Duration // Wait for a free runtime
}

// Result holds what a document did while it ran
type Result struct {
	Envelopes []relay.Envelope // Messages posted to parent, in order
	Console   []LogEntry       // Raw console output
	Uncaught  []string         // Exceptions with no window.onerror installed
	Scripts   int              // Inline scripts executed
	Timers    int              // Timer callbacks executed
	TimedOut  bool
	Duration  time.Duration
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, warn, error, info
	Message string    // Arguments joined by a space
	Time    time.Time // Timestamp
}

// DOMChange represents a setAttribute call made by a script
type DOMChange struct {
	Selector string
	Property string
	Value    string
}

// DefaultConfig returns the renderer defaults
func DefaultConfig() Config {
	return Config{
		Timeout:        2 * time.Second,
		MaxTimers:      64,
		MaxCallStack:   1024,
		PoolSize:       4,
		AcquireTimeout: 5 * time.Second,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxTimers == 0 {
		c.MaxTimers = def.MaxTimers
	}
	if c.MaxCallStack <= 0 {
		c.MaxCallStack = def.MaxCallStack
	}
	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = def.AcquireTimeout
	}
	return c
}
