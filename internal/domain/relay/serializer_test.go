package relay

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringifyPrimitives(t *testing.T) {
	cfg := DefaultSerializerConfig()

	assert.Equal(t, "42", Stringify(float64(42), cfg))
	assert.Equal(t, "1.5", Stringify(1.5, cfg))
	assert.Equal(t, "true", Stringify(true, cfg))
	assert.Equal(t, "null", Stringify(nil, cfg))
	assert.Equal(t, "plain", Stringify("plain", cfg), "top-level strings are not quoted")
	assert.Equal(t, `["a",1]`, Stringify([]any{"a", float64(1)}, cfg))
}

func TestStringifyDenyKeys(t *testing.T) {
	cfg := DefaultSerializerConfig()
	value := map[string]any{
		"name":   "box",
		"window": map[string]any{"huge": true},
		"parent": "x",
	}

	assert.Equal(t, `{"name":"box"}`, Stringify(value, cfg))

	custom := SerializerConfig{DenyKeys: []string{"name"}}
	assert.Equal(t, `{"parent":"x","window":{"huge":true}}`, Stringify(value, custom))
}

func TestStringifyDepthBound(t *testing.T) {
	value := map[string]any{"a": map[string]any{"b": map[string]any{"c": "deep"}}}

	assert.Equal(t, `{"a":{"b":[Object]}}`, Stringify(value, SerializerConfig{MaxDepth: 2}))
	assert.Equal(t, `{"a":{"b":{"c":"deep"}}}`, Stringify(value, SerializerConfig{MaxDepth: 5}))
}

func TestStringifyCycle(t *testing.T) {
	value := map[string]any{"name": "loop"}
	value["me"] = value

	out := Stringify(value, SerializerConfig{MaxDepth: 10})
	assert.Contains(t, out, PlaceholderCircular)
	assert.Contains(t, out, `"name":"loop"`)
}

func TestStringifyLengthBound(t *testing.T) {
	items := make([]any, 500)
	for i := range items {
		items[i] = strings.Repeat("x", 20)
	}

	out := Stringify(items, SerializerConfig{MaxLength: 100})
	assert.LessOrEqual(t, len(out), 100+len(truncationMarker))
	assert.True(t, strings.HasSuffix(out, truncationMarker))
}

func TestTruncateKeepsRunes(t *testing.T) {
	out := truncate("ééééé", 3)
	assert.Equal(t, "é"+truncationMarker, out)
}

func TestSerializerConfigJSON(t *testing.T) {
	var decoded SerializerConfig
	require.NoError(t, json.Unmarshal([]byte(SerializerConfig{}.JSON()), &decoded))

	assert.Equal(t, DefaultSerializerConfig(), decoded)
}
