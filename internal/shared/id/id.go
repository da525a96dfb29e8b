// Package id provides identifier generation for livepen.
//
// Sessions and requests carry prefixed ULIDs so they sort by creation time
// and read well in logs (sess_*, req_*). WebSocket clients get random UUIDs
// since they are never ordered or persisted.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a playground session
type SessionID string

// RequestID identifies an API request or tracing span
type RequestID string

// ClientID identifies a single WebSocket connection
type ClientID string

const (
	SessionPrefix = "sess"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewClientID generates a new WebSocket client ID
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id ClientID) String() string { return string(id) }

// ParseSessionID validates the sess_<ULID> form
func ParseSessionID(s string) (SessionID, error) {
	prefix, rest, ok := strings.Cut(s, "_")
	if !ok || prefix != SessionPrefix {
		return "", fmt.Errorf("invalid session id %q: missing %s_ prefix", s, SessionPrefix)
	}
	if !IsValid(rest) {
		return "", fmt.Errorf("invalid session id %q: malformed ULID", s)
	}
	return SessionID(s), nil
}

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.ParseStrict(id)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
