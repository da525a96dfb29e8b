package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Wire tags posted by the instrumentation script
const (
	TagCodeError  = "codeError"
	TagConsoleLog = "consoleLog"
)

// Sources of a message
const (
	SourceSandbox  = "sandbox"
	SourceHeadless = "headless"
	SourceProbe    = "probe"
)

var (
	ErrUnknownTag      = errors.New("unknown relay message type")
	ErrStaleGeneration = errors.New("relay message belongs to a superseded document")
	ErrMalformed       = errors.New("malformed relay message")
)

// Kind classifies an entry of the message list
type Kind string

const (
	KindError   Kind = "error"
	KindMessage Kind = "message"
)

// Envelope is one message posted from the sandboxed context.
//
// The protocol is closed: Type is either TagCodeError, carrying Error and
// optionally the location fields, or TagConsoleLog, carrying Msg.
type Envelope struct {
	Type   string `json:"type"`
	Error  any    `json:"error,omitempty"`
	Msg    string `json:"msg,omitempty"`
	Source string `json:"source,omitempty"`
	Line   int    `json:"line,omitempty"`
	Col    int    `json:"col,omitempty"`
}

// Kind maps the wire tag onto a message kind
func (e Envelope) Kind() Kind {
	if e.Type == TagCodeError {
		return KindError
	}
	return KindMessage
}

// Validate rejects anything outside the two known tags
func (e Envelope) Validate() error {
	switch e.Type {
	case TagCodeError, TagConsoleLog:
		return nil
	case "":
		return fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return fmt.Errorf("%w: %q", ErrUnknownTag, e.Type)
}

// Text renders the envelope as a single display line
func (e Envelope) Text(cfg SerializerConfig) string {
	if e.Type == TagConsoleLog {
		return truncate(e.Msg, cfg.normalize().MaxLength)
	}
	text := Stringify(e.Error, cfg)
	if e.Error == nil {
		text = "Error"
	}
	if e.Line > 0 {
		text = fmt.Sprintf("%s (line %d:%d)", text, e.Line, e.Col)
	}
	return text
}

// Decode parses and validates a JSON relay payload
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// FromMap builds an envelope from an already decoded object, such as a
// value exported from a JavaScript runtime
func FromMap(m map[string]any) (Envelope, error) {
	env := Envelope{Error: m["error"]}
	env.Type, _ = m["type"].(string)
	env.Msg, _ = m["msg"].(string)
	env.Source, _ = m["source"].(string)
	env.Line = toInt(m["line"])
	env.Col = toInt(m["col"])
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Message is one entry of a session's message list
type Message struct {
	Seq        uint64    `json:"seq"`
	Generation uint64    `json:"generation"`
	Kind       Kind      `json:"kind"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	Time       time.Time `json:"time"`
}
