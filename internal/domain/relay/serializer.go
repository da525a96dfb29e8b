package relay

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Placeholders emitted instead of values the serializer will not expand
const (
	PlaceholderCircular       = "[Circular]"
	PlaceholderUnserializable = "[Unserializable]"
	PlaceholderWindow         = "[Window]"
	truncationMarker          = "..."
)

// SerializerConfig bounds the best-effort stringification of logged values.
// The same settings drive the in-sandbox serializer and Stringify.
type SerializerConfig struct {
	MaxDepth  int      `json:"maxDepth" yaml:"max_depth" toml:"max_depth"`
	MaxLength int      `json:"maxLength" yaml:"max_length" toml:"max_length"`
	DenyKeys  []string `json:"denyKeys" yaml:"deny_keys" toml:"deny_keys"`
}

// DefaultDenyKeys names properties that point back at the global scope
var DefaultDenyKeys = []string{"window", "self", "parent", "top", "frames", "globalThis", "document"}

// DefaultSerializerConfig returns the bounds used when none are configured
func DefaultSerializerConfig() SerializerConfig {
	return SerializerConfig{
		MaxDepth:  3,
		MaxLength: 2000,
		DenyKeys:  append([]string(nil), DefaultDenyKeys...),
	}
}

func (c SerializerConfig) normalize() SerializerConfig {
	def := DefaultSerializerConfig()
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.MaxLength <= 0 {
		c.MaxLength = def.MaxLength
	}
	if c.DenyKeys == nil {
		c.DenyKeys = def.DenyKeys
	}
	return c
}

// JSON encodes the normalized configuration for embedding into a script
func (c SerializerConfig) JSON() string {
	data, err := sonic.Marshal(c.normalize())
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Stringify renders v the way the in-sandbox serializer renders a logged
// argument: strings verbatim at the top level, containers expanded up to
// MaxDepth, denied keys skipped, cycles replaced, output bounded by
// MaxLength. It never panics.
func Stringify(v any, cfg SerializerConfig) (out string) {
	cfg = cfg.normalize()
	defer func() {
		if recover() != nil {
			out = PlaceholderUnserializable
		}
	}()

	s := stringifier{
		cfg:  cfg,
		deny: make(map[string]struct{}, len(cfg.DenyKeys)),
		seen: make(map[uintptr]struct{}),
	}
	for _, k := range cfg.DenyKeys {
		s.deny[k] = struct{}{}
	}

	var b strings.Builder
	s.walk(&b, v, 0)
	return truncate(b.String(), cfg.MaxLength)
}

type stringifier struct {
	cfg  SerializerConfig
	deny map[string]struct{}
	seen map[uintptr]struct{}
}

func (s *stringifier) walk(b *strings.Builder, v any, depth int) {
	// Stop expanding once the output is already over budget
	if b.Len() > s.cfg.MaxLength {
		return
	}

	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		if depth == 0 {
			b.WriteString(val)
		} else {
			b.WriteString(strconv.Quote(val))
		}
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case json.Number:
		b.WriteString(val.String())
	case error:
		b.WriteString(val.Error())
	case map[string]any:
		s.object(b, val, depth)
	case []any:
		s.array(b, val, depth)
	default:
		b.WriteString(fmt.Sprint(val))
	}
}

func (s *stringifier) object(b *strings.Builder, m map[string]any, depth int) {
	if depth >= s.cfg.MaxDepth {
		b.WriteString("[Object]")
		return
	}
	ptr := reflect.ValueOf(m).Pointer()
	if _, ok := s.seen[ptr]; ok {
		b.WriteString(PlaceholderCircular)
		return
	}
	s.seen[ptr] = struct{}{}
	defer delete(s.seen, ptr)

	keys := make([]string, 0, len(m))
	for k := range m {
		if _, denied := s.deny[k]; !denied {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		s.walk(b, m[k], depth+1)
	}
	b.WriteByte('}')
}

func (s *stringifier) array(b *strings.Builder, items []any, depth int) {
	if depth >= s.cfg.MaxDepth {
		b.WriteString("[Array]")
		return
	}
	if len(items) > 0 {
		ptr := reflect.ValueOf(items).Pointer()
		if _, ok := s.seen[ptr]; ok {
			b.WriteString(PlaceholderCircular)
			return
		}
		s.seen[ptr] = struct{}{}
		defer delete(s.seen, ptr)
	}

	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		s.walk(b, item, depth+1)
	}
	b.WriteByte(']')
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	// Do not split a UTF-8 sequence
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
