package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"html", HTML, false},
		{"CSS", CSS, false},
		{" js ", JS, false},
		{"javascript", JS, false},
		{"ts", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshotWith(t *testing.T) {
	base := Snapshot{HTML: "<p>a</p>", CSS: "p{}", JS: "1"}

	next := base.With(JS, "2")

	assert.Equal(t, "1", base.JS, "original snapshot must not change")
	assert.Equal(t, "2", next.Get(JS))
	assert.Equal(t, base.HTML, next.Get(HTML))
	assert.Equal(t, base.CSS, next.Get(CSS))
}

func TestStoreNotifiesOnChange(t *testing.T) {
	store := NewStore(Snapshot{})

	var seen []Snapshot
	store.Observe(func(s Snapshot) { seen = append(seen, s) })
	require.Len(t, seen, 1, "observer receives the current snapshot on registration")

	assert.True(t, store.Set(CSS, "body{}"))
	assert.True(t, store.Set(HTML, "<h1>hi</h1>"))

	require.Len(t, seen, 3)
	assert.Equal(t, Snapshot{CSS: "body{}"}, seen[1])
	assert.Equal(t, Snapshot{CSS: "body{}", HTML: "<h1>hi</h1>"}, seen[2])
	assert.Equal(t, uint64(2), store.Version())
}

func TestStoreSkipsUnchangedText(t *testing.T) {
	store := NewStore(Snapshot{JS: "x"})

	calls := 0
	store.Observe(func(Snapshot) { calls++ })

	assert.False(t, store.Set(JS, "x"))
	assert.False(t, store.Replace(Snapshot{JS: "x"}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(0), store.Version())
}

func TestStoreReplaceNotifiesOnce(t *testing.T) {
	store := NewStore(Snapshot{})

	calls := 0
	store.Observe(func(Snapshot) { calls++ })

	next := Snapshot{HTML: "a", CSS: "b", JS: "c"}
	assert.True(t, store.Replace(next))
	assert.Equal(t, 2, calls)
	assert.Equal(t, next, store.Snapshot())
}

func TestStoreName(t *testing.T) {
	store := NewStore(Snapshot{})

	calls := 0
	store.Observe(func(Snapshot) { calls++ })

	assert.Equal(t, DefaultName, store.DisplayName())

	store.SetName("  demo  ")
	assert.Equal(t, "demo", store.Name())
	assert.Equal(t, "demo", store.DisplayName())
	assert.Equal(t, 1, calls, "name changes do not notify observers")
}
